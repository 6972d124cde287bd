package model

import "time"

// Уровни доступа к расшаренной папке в порядке возрастания привилегий.
const (
	// PermissionRead — просмотр листинга и скачивание файлов.
	PermissionRead = "read"
	// PermissionWrite — read плюс загрузка и удаление внутри папки.
	PermissionWrite = "write"
)

// permissionWeight — вес уровня доступа для сравнения.
var permissionWeight = map[string]int{
	PermissionRead:  1,
	PermissionWrite: 2,
}

// IsValidPermission проверяет, является ли строка допустимым уровнем доступа.
func IsValidPermission(p string) bool {
	_, ok := permissionWeight[p]
	return ok
}

// PermissionCovers сообщает, покрывает ли granted требуемый уровень required.
// write покрывает read; read не покрывает write.
func PermissionCovers(granted, required string) bool {
	return permissionWeight[granted] >= permissionWeight[required]
}

// SharedFolder — грант доступа к папке из таблицы shared_folders.
// Папка всегда принадлежит не получателю гранта.
type SharedFolder struct {
	// ID — первичный ключ
	ID int64
	// FolderID — расшаренная папка
	FolderID int64
	// SharedWithUserID — получатель доступа
	SharedWithUserID int64
	// SharedWithUsername — имя получателя (join с users при чтении)
	SharedWithUsername string
	// Permission — уровень доступа (read, write)
	Permission string
	// CreatedAt — время выдачи гранта
	CreatedAt time.Time
}
