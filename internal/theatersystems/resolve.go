package theatersystems

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/ticketbooth-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/ticketbooth-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type systemFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.TheaterSystem, error)
	FindByCode(ctx context.Context, code string) (*models.TheaterSystem, error)
}

// Resolve finds the system a reference points at. A syntactically valid id
// wins over the code; a blank reference resolves to no system. A reference
// that carries a value but matches nothing is NotFound.
func Resolve(ctx context.Context, finder systemFinder, ref Reference) (*models.TheaterSystem, error) {
	if ref.Blank() {
		return nil, nil
	}

	if id, err := uuid.Parse(strings.TrimSpace(ref.ID)); err == nil {
		system, err := finder.FindByID(ctx, id)
		return system, lookupError(err)
	}

	code := NormalizeCode(ref.Code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "theater system not found")
	}
	system, err := finder.FindByCode(ctx, code)
	return system, lookupError(err)
}

func lookupError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "theater system not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup theater system")
}
