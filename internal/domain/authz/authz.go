// Пакет authz — правила доступа к ресурсам MOCO.
// Единая точка принятия решений: владелец, роль администратора,
// гранты расшаренных папок. Чужой ресурс без гранта неотличим от
// несуществующего (NotFound, а не Forbidden) — существование чужих
// ресурсов не раскрывается.
package authz

import "github.com/matatunos/moco/internal/domain/model"

// Decision — результат проверки доступа.
type Decision int

const (
	// DecisionNotFound — ресурс отсутствует либо скрыт от субъекта.
	DecisionNotFound Decision = iota
	// DecisionForbidden — ресурс виден, но прав недостаточно.
	DecisionForbidden
	// DecisionAllowed — операция разрешена.
	DecisionAllowed
)

// String возвращает текстовое представление решения.
func (d Decision) String() string {
	switch d {
	case DecisionAllowed:
		return "allowed"
	case DecisionForbidden:
		return "forbidden"
	default:
		return "not_found"
	}
}

// Action — класс операции над ресурсом.
type Action int

const (
	// ActionRead — листинг, скачивание, просмотр метаданных.
	ActionRead Action = iota
	// ActionWrite — загрузка, удаление, создание внутри ресурса.
	ActionWrite
	// ActionAdmin — управление аккаунтами и настройками.
	ActionAdmin
)

// requiredPermission возвращает минимальный уровень гранта для действия.
func requiredPermission(a Action) string {
	if a == ActionWrite {
		return model.PermissionWrite
	}
	return model.PermissionRead
}

// Principal — аутентифицированный субъект запроса.
type Principal struct {
	// ID — идентификатор пользователя
	ID int64
	// Role — роль (user, admin)
	Role string
}

// IsAdmin сообщает, имеет ли субъект роль администратора.
func (p Principal) IsAdmin() bool {
	return p.Role == model.RoleAdmin
}

// Resource — целевой ресурс проверки.
type Resource struct {
	// Exists — существует ли ресурс
	Exists bool
	// OwnerID — владелец ресурса
	OwnerID int64
	// GrantedPermission — уровень гранта субъекта на папку ресурса
	// (nil — гранта нет). Разрешается вызывающим кодом через Sharing Registry.
	GrantedPermission *string
}

// Decide принимает решение о доступе по правилам, в порядке:
//  1. ресурс не существует — NotFound;
//  2. субъект владеет ресурсом — Allowed;
//  3. административное действие — по роли (Allowed/Forbidden);
//  4. есть грант достаточного уровня — Allowed;
//  5. иначе — NotFound (чужой ресурс не раскрывается).
func Decide(p Principal, action Action, res Resource) Decision {
	if !res.Exists {
		return DecisionNotFound
	}

	if res.OwnerID == p.ID {
		return DecisionAllowed
	}

	if action == ActionAdmin {
		if p.IsAdmin() {
			return DecisionAllowed
		}
		return DecisionForbidden
	}

	// Грант раскрывает существование папки субъекту,
	// поэтому недостаточный уровень — Forbidden, а не NotFound.
	if res.GrantedPermission != nil {
		if model.PermissionCovers(*res.GrantedPermission, requiredPermission(action)) {
			return DecisionAllowed
		}
		return DecisionForbidden
	}

	return DecisionNotFound
}
