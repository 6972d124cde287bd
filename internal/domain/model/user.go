// Пакет model — доменные модели MOCO.
package model

import "time"

// Роли пользователей.
const (
	// RoleUser — обычный пользователь, видит только свои ресурсы.
	RoleUser = "user"
	// RoleAdmin — администратор, управляет аккаунтами и настройками.
	RoleAdmin = "admin"
)

// IsValidRole проверяет, является ли строка допустимой ролью.
func IsValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

// User — учётная запись пользователя из таблицы users.
type User struct {
	// ID — первичный ключ
	ID int64
	// Username — уникальное имя пользователя
	Username string
	// Email — уникальный адрес электронной почты
	Email string
	// PasswordHash — bcrypt-хэш пароля, наружу не отдаётся
	PasswordHash string
	// Role — роль (user, admin). Первый зарегистрированный — admin.
	Role string
	// IsActive — активен ли аккаунт. Отключённый не может войти.
	IsActive bool
	// CreatedAt — время регистрации
	CreatedAt time.Time
}

// IsAdmin сообщает, имеет ли пользователь роль администратора.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
