package service

import "errors"

// Ошибки бизнес-логики. Обработчики API сопоставляют их
// с HTTP-статусами и кодами ошибок.
var (
	// ErrValidation — некорректные входные данные.
	ErrValidation = errors.New("некорректные данные")
	// ErrNotFound — ресурс не существует либо скрыт от субъекта.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrForbidden — недостаточно прав.
	ErrForbidden = errors.New("доступ запрещён")
	// ErrConflict — дублирующийся ресурс.
	ErrConflict = errors.New("ресурс уже существует")
	// ErrInvalidCredentials — неверное имя пользователя или пароль.
	ErrInvalidCredentials = errors.New("неверные учётные данные")
	// ErrAccountDisabled — учётная запись деактивирована.
	ErrAccountDisabled = errors.New("учётная запись отключена")
	// ErrRegistrationDisabled — регистрация новых пользователей закрыта.
	ErrRegistrationDisabled = errors.New("регистрация отключена")
	// ErrStorage — сбой blob-хранилища.
	ErrStorage = errors.New("ошибка хранилища файлов")
)
