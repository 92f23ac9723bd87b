package recipe

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Ivan-Edokov/kitchen-assistant/internal/auth"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/authz"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/shopping"
)

type fakeRepo struct {
	authors  map[int64]int64
	listed   Filter
	created  int
	updated  int
	deleted  int
	relation []Relation
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{authors: map[int64]int64{10: 2}}
}

func (f *fakeRepo) List(ctx context.Context, filter Filter) ([]Recipe, error) {
	f.listed = filter
	return []Recipe{{ID: 10}}, nil
}

func (f *fakeRepo) Get(ctx context.Context, id, viewerID int64) (Recipe, error) {
	author, ok := f.authors[id]
	if !ok {
		return Recipe{}, ErrNotFound
	}
	rec := Recipe{ID: id, Name: "Omelette"}
	rec.Author.ID = author
	return rec, nil
}

func (f *fakeRepo) Create(ctx context.Context, authorID int64, in Input) (int64, error) {
	f.created++
	f.authors[11] = authorID
	return 11, nil
}

func (f *fakeRepo) Update(ctx context.Context, id int64, in Input) error {
	f.updated++
	return nil
}

func (f *fakeRepo) Delete(ctx context.Context, id int64) error {
	f.deleted++
	delete(f.authors, id)
	return nil
}

func (f *fakeRepo) AuthorOf(ctx context.Context, id int64) (int64, error) {
	author, ok := f.authors[id]
	if !ok {
		return 0, ErrNotFound
	}
	return author, nil
}

func (f *fakeRepo) AddRelation(ctx context.Context, rel Relation, userID, recipeID int64) (Short, error) {
	f.relation = append(f.relation, rel)
	return Short{ID: recipeID}, nil
}

func (f *fakeRepo) RemoveRelation(ctx context.Context, rel Relation, userID, recipeID int64) error {
	f.relation = append(f.relation, rel)
	return nil
}

func (f *fakeRepo) CartItems(ctx context.Context, userID int64) ([]shopping.CartItem, error) {
	return []shopping.CartItem{}, nil
}

type fakeNotifier struct {
	got []Recipe
	err error
}

func (n *fakeNotifier) PublishRecipePublished(ctx context.Context, r Recipe) error {
	n.got = append(n.got, r)
	return n.err
}

var (
	anonymous = auth.Principal{Role: string(authz.RoleAnonymous)}
	owner     = auth.Principal{UserID: 2, Role: "user"}
	stranger  = auth.Principal{UserID: 3, Role: "user"}
	admin     = auth.Principal{UserID: 4, Role: "admin"}
)

func TestService_List(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, zerolog.Nop())

	got, err := svc.List(context.Background(), anonymous, Filter{FavoritedOnly: true})
	require.NoError(t, err)
	require.Empty(t, got)

	_, err = svc.List(context.Background(), owner, Filter{FavoritedOnly: true, ViewerID: 99})
	require.NoError(t, err)
	require.Equal(t, int64(2), repo.listed.ViewerID)
}

func TestService_Create(t *testing.T) {
	repo := newFakeRepo()
	notifier := &fakeNotifier{}
	svc := NewService(repo, notifier, zerolog.Nop())

	_, err := svc.Create(context.Background(), anonymous, validInput())
	require.ErrorIs(t, err, authz.ErrUnauthenticated)
	require.Zero(t, repo.created)

	rec, err := svc.Create(context.Background(), owner, validInput())
	require.NoError(t, err)
	require.Equal(t, int64(11), rec.ID)
	require.Equal(t, int64(2), rec.Author.ID)
	require.Len(t, notifier.got, 1)
}

func TestService_Create_NotifierFailureIsIgnored(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeNotifier{err: errors.New("broker down")}, zerolog.Nop())

	_, err := svc.Create(context.Background(), owner, validInput())
	require.NoError(t, err)
}

func TestService_UpdateDelete_Ownership(t *testing.T) {
	tests := []struct {
		name  string
		actor auth.Principal
		id    int64
		want  error
	}{
		{"owner", owner, 10, nil},
		{"admin", admin, 10, nil},
		{"stranger", stranger, 10, authz.ErrForbidden},
		{"anonymous", anonymous, 10, authz.ErrUnauthenticated},
		{"missing recipe", stranger, 99, ErrNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewService(newFakeRepo(), nil, zerolog.Nop())

			_, err := svc.Update(context.Background(), tc.actor, tc.id, validInput())
			if tc.want == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tc.want)
			}

			err = svc.Delete(context.Background(), tc.actor, tc.id)
			if tc.want == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tc.want)
			}
		})
	}
}

func TestService_Relations(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, zerolog.Nop())

	_, err := svc.AddRelation(context.Background(), anonymous, ShoppingCart, 10)
	require.ErrorIs(t, err, authz.ErrUnauthenticated)

	s, err := svc.AddRelation(context.Background(), stranger, ShoppingCart, 10)
	require.NoError(t, err)
	require.Equal(t, int64(10), s.ID)

	require.NoError(t, svc.RemoveRelation(context.Background(), stranger, Favorites, 10))
	require.Equal(t, []Relation{ShoppingCart, Favorites}, repo.relation)
}
