package product

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bakehouse/internal/core/apperror"
	"bakehouse/internal/core/id"
	"bakehouse/internal/core/tx"
	"bakehouse/internal/core/types"
	"bakehouse/internal/domain/audit"
)

type fakeRepo struct {
	products   map[id.ID]Product
	components []Component
	semis      map[id.ID]string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{products: map[id.ID]Product{}, semis: map[id.ID]string{}}
}

func (r *fakeRepo) Create(_ context.Context, p *Product, components []ComponentInput) error {
	r.products[p.ID] = *p
	for _, c := range components {
		r.components = append(r.components, Component{ProductID: p.ID, SemiID: c.SemiID, SemiName: r.semis[c.SemiID], QuantityNeeded: c.Quantity})
	}
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, productID id.ID) (*Product, error) {
	p, ok := r.products[productID]
	if !ok {
		return nil, apperror.NewNotFound(entityName, productID.String())
	}
	return &p, nil
}

func (r *fakeRepo) ExistsByName(_ context.Context, name string) (bool, error) {
	for _, p := range r.products {
		if strings.EqualFold(p.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) SemiNames(_ context.Context, ids []id.ID) (map[id.ID]string, error) {
	out := map[id.ID]string{}
	for _, i := range ids {
		if n, ok := r.semis[i]; ok {
			out[i] = n
		}
	}
	return out, nil
}

func (r *fakeRepo) List(context.Context) ([]Product, error) {
	var out []Product
	for _, p := range r.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeRepo) GetComponents(_ context.Context, productIDs []id.ID) ([]Component, error) {
	want := map[id.ID]bool{}
	for _, i := range productIDs {
		want[i] = true
	}
	var out []Component
	for _, c := range r.components {
		if want[c.ProductID] {
			out = append(out, c)
		}
	}
	return out, nil
}

func TestCreate(t *testing.T) {
	repo := newFakeRepo()
	base, cream := id.New(), id.New()
	repo.semis[base] = "Sponge"
	repo.semis[cream] = "Cream"
	svc := NewService(repo, tx.Passthrough{}, audit.Nop{})

	d, err := svc.Create(context.Background(), CreateInput{
		Name:         " Cream Cake ",
		SellingPrice: types.MustDecimal("12.50"),
		Components: []ComponentInput{
			{SemiID: base, Quantity: 1},
			{SemiID: cream, Quantity: 2},
			{SemiID: id.New(), Quantity: 0},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Cream Cake", d.Name)
	assert.Len(t, d.Components, 2)

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Sponge (1 units), Cream (2 units)", list[0].Recipe)
}

func TestCreate_Rejections(t *testing.T) {
	repo := newFakeRepo()
	semi := id.New()
	repo.semis[semi] = "Sponge"
	svc := NewService(repo, tx.Passthrough{}, audit.Nop{})
	ctx := context.Background()

	valid := func() CreateInput {
		return CreateInput{Name: "Cake", SellingPrice: types.MustDecimal("5"), Components: []ComponentInput{{SemiID: semi, Quantity: 1}}}
	}

	in := valid()
	in.SellingPrice = types.MustDecimal("0")
	_, err := svc.Create(ctx, in)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	in = valid()
	in.Components[0].Quantity = 1001
	_, err = svc.Create(ctx, in)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	in = valid()
	in.Components[0].Quantity = 0
	_, err = svc.Create(ctx, in)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	in = valid()
	in.Components = append(in.Components, ComponentInput{SemiID: semi, Quantity: 3})
	_, err = svc.Create(ctx, in)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	in = valid()
	in.Components[0].SemiID = id.New()
	_, err = svc.Create(ctx, in)
	assert.True(t, apperror.IsNotFound(err))

	_, err = svc.Create(ctx, valid())
	require.NoError(t, err)
	_, err = svc.Create(ctx, valid())
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicate))
}
