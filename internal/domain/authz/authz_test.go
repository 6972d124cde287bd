package authz

import (
	"testing"

	"github.com/matatunos/moco/internal/domain/model"
)

func strPtr(s string) *string { return &s }

func TestDecide(t *testing.T) {
	owner := Principal{ID: 1, Role: model.RoleUser}
	stranger := Principal{ID: 2, Role: model.RoleUser}
	admin := Principal{ID: 3, Role: model.RoleAdmin}

	tests := []struct {
		name   string
		p      Principal
		action Action
		res    Resource
		want   Decision
	}{
		{
			name:   "несуществующий ресурс — NotFound",
			p:      owner,
			action: ActionRead,
			res:    Resource{Exists: false},
			want:   DecisionNotFound,
		},
		{
			name:   "владелец читает свой ресурс",
			p:      owner,
			action: ActionRead,
			res:    Resource{Exists: true, OwnerID: 1},
			want:   DecisionAllowed,
		},
		{
			name:   "владелец изменяет свой ресурс",
			p:      owner,
			action: ActionWrite,
			res:    Resource{Exists: true, OwnerID: 1},
			want:   DecisionAllowed,
		},
		{
			name:   "чужой ресурс без гранта — NotFound, не Forbidden",
			p:      stranger,
			action: ActionRead,
			res:    Resource{Exists: true, OwnerID: 1},
			want:   DecisionNotFound,
		},
		{
			name:   "чужой ресурс без гранта, запись — NotFound",
			p:      stranger,
			action: ActionWrite,
			res:    Resource{Exists: true, OwnerID: 1},
			want:   DecisionNotFound,
		},
		{
			name:   "грант read разрешает чтение",
			p:      stranger,
			action: ActionRead,
			res:    Resource{Exists: true, OwnerID: 1, GrantedPermission: strPtr(model.PermissionRead)},
			want:   DecisionAllowed,
		},
		{
			name:   "грант read не разрешает запись",
			p:      stranger,
			action: ActionWrite,
			res:    Resource{Exists: true, OwnerID: 1, GrantedPermission: strPtr(model.PermissionRead)},
			want:   DecisionForbidden,
		},
		{
			name:   "грант write разрешает запись",
			p:      stranger,
			action: ActionWrite,
			res:    Resource{Exists: true, OwnerID: 1, GrantedPermission: strPtr(model.PermissionWrite)},
			want:   DecisionAllowed,
		},
		{
			name:   "грант write покрывает чтение",
			p:      stranger,
			action: ActionRead,
			res:    Resource{Exists: true, OwnerID: 1, GrantedPermission: strPtr(model.PermissionWrite)},
			want:   DecisionAllowed,
		},
		{
			name:   "админ выполняет административное действие над чужим аккаунтом",
			p:      admin,
			action: ActionAdmin,
			res:    Resource{Exists: true, OwnerID: 1},
			want:   DecisionAllowed,
		},
		{
			name:   "не-админ получает Forbidden на административное действие",
			p:      stranger,
			action: ActionAdmin,
			res:    Resource{Exists: true, OwnerID: 1},
			want:   DecisionForbidden,
		},
		{
			name:   "грант не даёт административных прав",
			p:      stranger,
			action: ActionAdmin,
			res:    Resource{Exists: true, OwnerID: 1, GrantedPermission: strPtr(model.PermissionWrite)},
			want:   DecisionForbidden,
		},
		{
			name:   "админ не получает неявного доступа к чужим файлам",
			p:      admin,
			action: ActionRead,
			res:    Resource{Exists: true, OwnerID: 1},
			want:   DecisionNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.p, tt.action, tt.res)
			if got != tt.want {
				t.Errorf("Decide() = %s, ожидается %s", got, tt.want)
			}
		})
	}
}

func TestPermissionCovers(t *testing.T) {
	if !model.PermissionCovers(model.PermissionWrite, model.PermissionRead) {
		t.Error("write должен покрывать read")
	}
	if model.PermissionCovers(model.PermissionRead, model.PermissionWrite) {
		t.Error("read не должен покрывать write")
	}
	if !model.PermissionCovers(model.PermissionRead, model.PermissionRead) {
		t.Error("read должен покрывать read")
	}
}
