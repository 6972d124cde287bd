package model

import "time"

// File — метаданные загруженного файла из таблицы files.
// Содержимое лежит в blob-хранилище по ключу StorageKey.
type File struct {
	// ID — первичный ключ
	ID int64
	// Name — имя хранения с разрешёнными коллизиями (report_1.pdf)
	Name string
	// OriginalName — имя файла, указанное пользователем при загрузке
	OriginalName string
	// Size — размер в байтах
	Size int64
	// MimeType — заявленный MIME-тип
	MimeType string
	// StorageKey — непрозрачный ключ в blob-хранилище, уникален в рамках владельца
	StorageKey string
	// FolderID — папка (NULL — верхний уровень)
	FolderID *int64
	// UserID — владелец
	UserID int64
	// CreatedAt — время загрузки
	CreatedAt time.Time
}
