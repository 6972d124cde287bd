package model

// Ключи таблицы settings. Схема перечислимая: неизвестные ключи отклоняются.
const (
	// SettingAllowRegistration — разрешена ли регистрация ("0"/"1").
	SettingAllowRegistration = "allow_registration"
	// SettingMaxFileSize — максимальный размер загружаемого файла в байтах.
	SettingMaxFileSize = "max_file_size"
	// SettingAllowedExtensions — "all" либо список расширений через запятую.
	SettingAllowedExtensions = "allowed_extensions"
	// SettingBootstrapAdminAssigned — sentinel первого администратора.
	// Записывается в той же транзакции, что и первый пользователь;
	// уникальность ключа сериализует гонку двух первых регистраций.
	SettingBootstrapAdminAssigned = "bootstrap_admin_assigned"
)

// Setting — запись key/value из таблицы settings.
type Setting struct {
	// Key — ключ настройки
	Key string
	// Value — строковое значение
	Value string
}
