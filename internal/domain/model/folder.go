package model

import "time"

// RootFolderName — имя синтетической корневой папки пользователя.
// Создаётся вместе с пользователем, не отображается в листингах,
// не может быть удалена.
const RootFolderName = "root"

// Folder — папка из таблицы folders.
// Путь материализован: path = parent.path + name + "/".
// У корневой папки path = "/" и parent = NULL.
type Folder struct {
	// ID — первичный ключ
	ID int64
	// Name — имя папки
	Name string
	// Path — материализованный путь, всегда заканчивается на "/"
	Path string
	// ParentID — родительская папка того же пользователя (NULL у верхнего уровня)
	ParentID *int64
	// UserID — владелец
	UserID int64
	// CreatedAt — время создания
	CreatedAt time.Time
}

// IsRoot сообщает, является ли папка корневой. Корень распознаётся
// и по отсутствию родителя, и по зарезервированному имени "root":
// папка с таким именем неудаляема независимо от положения в дереве,
// а создание обычных папок с этим именем запрещено на уровне сервиса.
func (f *Folder) IsRoot() bool {
	return f.ParentID == nil || f.Name == RootFolderName
}
