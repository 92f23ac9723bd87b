package recipe

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Ivan-Edokov/kitchen-assistant/internal/auth"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/authz"
)

// PublishNotifier is told about newly created recipes.
type PublishNotifier interface {
	PublishRecipePublished(ctx context.Context, r Recipe) error
}

type Service struct {
	repo     Repository
	notifier PublishNotifier
	logger   zerolog.Logger
}

func NewService(repo Repository, notifier PublishNotifier, logger zerolog.Logger) *Service {
	return &Service{repo: repo, notifier: notifier, logger: logger}
}

func role(actor auth.Principal) authz.Role {
	return authz.ActorRole(actor.UserID, actor.Role)
}

// List applies the filter from the actor's point of view. Anonymous actors
// asking for favorites or cart contents get an empty list.
func (s *Service) List(ctx context.Context, actor auth.Principal, f Filter) ([]Recipe, error) {
	f.ViewerID = actor.UserID
	if actor.UserID == 0 && (f.FavoritedOnly || f.InCartOnly) {
		return []Recipe{}, nil
	}
	return s.repo.List(ctx, f)
}

func (s *Service) Get(ctx context.Context, actor auth.Principal, id int64) (Recipe, error) {
	return s.repo.Get(ctx, id, actor.UserID)
}

func (s *Service) Create(ctx context.Context, actor auth.Principal, in Input) (Recipe, error) {
	if err := authz.Check(role(actor), authz.ActionCreateRecipe, authz.OwnershipNone); err != nil {
		return Recipe{}, err
	}
	id, err := s.repo.Create(ctx, actor.UserID, in)
	if err != nil {
		return Recipe{}, err
	}
	rec, err := s.repo.Get(ctx, id, actor.UserID)
	if err != nil {
		return Recipe{}, err
	}

	if s.notifier != nil {
		if err := s.notifier.PublishRecipePublished(ctx, rec); err != nil {
			s.logger.Warn().Err(err).Int64("recipe_id", rec.ID).Msg("publish recipe event failed")
		}
	}
	return rec, nil
}

func (s *Service) Update(ctx context.Context, actor auth.Principal, id int64, in Input) (Recipe, error) {
	if err := s.authorize(ctx, actor, authz.ActionUpdateRecipe, id); err != nil {
		return Recipe{}, err
	}
	if err := s.repo.Update(ctx, id, in); err != nil {
		return Recipe{}, err
	}
	return s.repo.Get(ctx, id, actor.UserID)
}

func (s *Service) Delete(ctx context.Context, actor auth.Principal, id int64) error {
	if err := s.authorize(ctx, actor, authz.ActionDeleteRecipe, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// authorize resolves ownership of an existing recipe before checking the policy,
// so unknown ids surface as ErrNotFound for authenticated actors.
func (s *Service) authorize(ctx context.Context, actor auth.Principal, action authz.Action, id int64) error {
	r := role(actor)
	if r == authz.RoleAnonymous {
		return authz.ErrUnauthenticated
	}
	authorID, err := s.repo.AuthorOf(ctx, id)
	if err != nil {
		return err
	}
	return authz.Check(r, action, authz.OwnershipOf(actor.UserID, authorID))
}

func relationAction(rel Relation) authz.Action {
	if rel == ShoppingCart {
		return authz.ActionCart
	}
	return authz.ActionFavorite
}

func (s *Service) AddRelation(ctx context.Context, actor auth.Principal, rel Relation, recipeID int64) (Short, error) {
	if err := authz.Check(role(actor), relationAction(rel), authz.OwnershipNone); err != nil {
		return Short{}, err
	}
	return s.repo.AddRelation(ctx, rel, actor.UserID, recipeID)
}

func (s *Service) RemoveRelation(ctx context.Context, actor auth.Principal, rel Relation, recipeID int64) error {
	if err := authz.Check(role(actor), relationAction(rel), authz.OwnershipNone); err != nil {
		return err
	}
	return s.repo.RemoveRelation(ctx, rel, actor.UserID, recipeID)
}
