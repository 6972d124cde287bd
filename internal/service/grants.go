package service

import (
	"context"
	"errors"

	"github.com/matatunos/moco/internal/domain/authz"
	"github.com/matatunos/moco/internal/domain/model"
	"github.com/matatunos/moco/internal/repository"
)

// resolveSubtreeGrant разрешает грант субъекта на папку.
// Грант распространяется на всё поддерево: при отсутствии прямого
// гранта проверяются предки вплоть до корня.
func resolveSubtreeGrant(
	ctx context.Context,
	folders *repository.FolderRepository,
	shares *repository.ShareRepository,
	p authz.Principal,
	folder *model.Folder,
) (*string, error) {
	current := folder
	for {
		perm, err := shares.GetPermission(ctx, current.ID, p.ID)
		if err != nil {
			return nil, err
		}
		if perm != nil {
			return perm, nil
		}
		if current.ParentID == nil {
			return nil, nil
		}

		parent, err := folders.GetByID(ctx, *current.ParentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		current = parent
	}
}
