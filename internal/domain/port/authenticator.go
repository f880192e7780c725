package port

import (
	"context"

	"cell-guard/internal/domain/entity"
)

// FaceAuthenticator классификатор лиц
type FaceAuthenticator interface {
	// Process размечает кадр и решает, есть ли в нём лицо с допуском
	Process(ctx context.Context, frame *entity.Frame) (entity.AuthResult, error)
}
