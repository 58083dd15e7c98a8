package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/pos-ledger/internal/core/domain"
	"github.com/ammerola/pos-ledger/internal/core/ports"
	"github.com/ammerola/pos-ledger/internal/core/services"
	"github.com/ammerola/pos-ledger/test/helpers"
	"github.com/ammerola/pos-ledger/test/mocks"
)

func newCatalogService(t *testing.T) (*services.CatalogService, *mocks.MockProductRepository, *mocks.MockCacheRepository) {
	ctrl := gomock.NewController(t)
	products := mocks.NewMockProductRepository(ctrl)
	cache := mocks.NewMockCacheRepository(ctrl)
	svc := services.NewCatalogService(helpers.PassthroughTransactor(ctrl), nil, products, cache, helpers.TestLogger())
	return svc, products, cache
}

func TestCatalogService_Reconcile(t *testing.T) {
	tests := []struct {
		name       string
		rows       []domain.Row
		setupMocks func(*mocks.MockProductRepository, *mocks.MockCacheRepository)
		want       domain.ImportResult
		wantErr    error
	}{
		{
			name: "creates_new_product_with_defaults",
			rows: []domain.Row{{"Nombre": "  Yerba Mate 1kg ", "Precio Venta": "12.499"}},
			setupMocks: func(p *mocks.MockProductRepository, c *mocks.MockCacheRepository) {
				p.EXPECT().FindByName(gomock.Any(), gomock.Any(), "Yerba Mate 1kg").Return(nil, nil)
				p.EXPECT().
					Create(gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ ports.Querier, prod *domain.Product) error {
						assert.Equal(t, "Yerba Mate 1kg", prod.Name)
						assert.Equal(t, domain.CategoryUncategorized, prod.Category)
						assert.Equal(t, domain.SupplierCatalog, prod.Supplier)
						assert.Equal(t, domain.StatusAvailable, prod.Status)
						assert.Equal(t, "12.5", prod.SalePrice.String())
						return nil
					})
				c.EXPECT().DeletePattern(gomock.Any(), "search:*").Return(nil)
				c.EXPECT().DeletePattern(gomock.Any(), "dash:*").Return(nil)
			},
			want: domain.ImportResult{Created: 1},
		},
		{
			name: "updates_existing_product_keeping_category_when_blank",
			rows: []domain.Row{{"Nombre": "yerba mate 1kg", "Precio_Venta": 15.0, "SubCAT": "Hierbas"}},
			setupMocks: func(p *mocks.MockProductRepository, c *mocks.MockCacheRepository) {
				existing := helpers.CreateTestProduct(func(p *domain.Product) {
					p.Supplier = "Distribuidora Norte"
				})
				p.EXPECT().FindByName(gomock.Any(), gomock.Any(), "yerba mate 1kg").Return(existing, nil)
				p.EXPECT().
					Update(gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ ports.Querier, prod *domain.Product) error {
						assert.Equal(t, int64(1), prod.ID)
						assert.Equal(t, "Almacén", prod.Category)
						assert.Equal(t, "Hierbas", prod.Subcategory)
						assert.Equal(t, domain.SupplierCatalog, prod.Supplier)
						assert.True(t, prod.SalePrice.Equal(decimal.NewFromInt(15)))
						return nil
					})
				c.EXPECT().DeletePattern(gomock.Any(), gomock.Any()).Return(nil).Times(2)
			},
			want: domain.ImportResult{Updated: 1},
		},
		{
			name: "primary_price_column_wins_even_when_blank",
			rows: []domain.Row{{"Nombre": "Azúcar", "Precio Venta": "", "Precio_Venta": 3.0}},
			setupMocks: func(p *mocks.MockProductRepository, c *mocks.MockCacheRepository) {
			},
			want: domain.ImportResult{Skipped: 1},
		},
		{
			name: "skips_rows_without_name_or_price_and_batch_duplicates",
			rows: []domain.Row{
				{"Nombre": "", "Precio Venta": 10.0},
				{"Nombre": "Arroz", "Precio Venta": "n/a"},
				{"Nombre": "Fideos", "Precio Venta": 4.0},
				{"Nombre": "Fideos", "Precio Venta": 5.0},
			},
			setupMocks: func(p *mocks.MockProductRepository, c *mocks.MockCacheRepository) {
				p.EXPECT().FindByName(gomock.Any(), gomock.Any(), "Fideos").Return(nil, nil)
				p.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
				c.EXPECT().DeletePattern(gomock.Any(), gomock.Any()).Return(nil).Times(2)
			},
			want: domain.ImportResult{Created: 1, Skipped: 3},
		},
		{
			name: "name_skipped_for_missing_price_is_accepted_later_in_batch",
			rows: []domain.Row{
				{"Nombre": "Foo", "Precio Venta": ""},
				{"Nombre": "Foo", "Precio Venta": 10.0},
			},
			setupMocks: func(p *mocks.MockProductRepository, c *mocks.MockCacheRepository) {
				p.EXPECT().FindByName(gomock.Any(), gomock.Any(), "Foo").Return(nil, nil)
				p.EXPECT().
					Create(gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ ports.Querier, prod *domain.Product) error {
						assert.True(t, prod.SalePrice.Equal(decimal.NewFromInt(10)))
						return nil
					})
				c.EXPECT().DeletePattern(gomock.Any(), gomock.Any()).Return(nil).Times(2)
			},
			want: domain.ImportResult{Created: 1, Skipped: 1},
		},
		{
			name: "skips_values_the_store_cannot_hold",
			rows: []domain.Row{
				{"Nombre": "Negativo", "Precio Venta": -5.0},
				{"Nombre": "Gratis", "Precio Venta": 0},
				{"Nombre": "Carísimo", "Precio Venta": 1e10},
				{"Nombre": strings.Repeat("x", domain.MaxProductNameLen+1), "Precio Venta": 1.0},
				{"Nombre": "Largo", "Categoria": strings.Repeat("c", domain.MaxCategoryLen+1), "Precio Venta": 1.0},
			},
			setupMocks: func(*mocks.MockProductRepository, *mocks.MockCacheRepository) {},
			want:       domain.ImportResult{Skipped: 5},
		},
		{
			name:       "empty_batch_is_not_an_error",
			rows:       nil,
			setupMocks: func(*mocks.MockProductRepository, *mocks.MockCacheRepository) {},
			want:       domain.ImportResult{},
		},
		{
			name: "repository_error_is_storage_failure",
			rows: []domain.Row{{"Nombre": "Café", "Precio Venta": 9.0}},
			setupMocks: func(p *mocks.MockProductRepository, c *mocks.MockCacheRepository) {
				p.EXPECT().FindByName(gomock.Any(), gomock.Any(), "Café").Return(nil, errors.New("connection reset"))
			},
			wantErr: domain.ErrStorage,
		},
		{
			name: "cache_failure_does_not_fail_reconcile",
			rows: []domain.Row{{"Nombre": "Té", "Precio Venta": 2.5}},
			setupMocks: func(p *mocks.MockProductRepository, c *mocks.MockCacheRepository) {
				p.EXPECT().FindByName(gomock.Any(), gomock.Any(), "Té").Return(nil, nil)
				p.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
				c.EXPECT().DeletePattern(gomock.Any(), gomock.Any()).Return(errors.New("redis down")).Times(2)
			},
			want: domain.ImportResult{Created: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, products, cache := newCatalogService(t)
			tt.setupMocks(products, cache)

			got, err := svc.Reconcile(context.Background(), tt.rows)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCatalogService_Reconcile_Idempotent(t *testing.T) {
	svc, products, cache := newCatalogService(t)
	rows := []domain.Row{{"Nombre": "Yerba Mate 1kg", "Categoria": "Almacén", "Precio Venta": 12.5}}

	var stored *domain.Product
	products.EXPECT().
		FindByName(gomock.Any(), gomock.Any(), "Yerba Mate 1kg").
		DoAndReturn(func(context.Context, ports.Querier, string) (*domain.Product, error) {
			return stored, nil
		}).
		Times(2)
	products.EXPECT().
		Create(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ ports.Querier, p *domain.Product) error {
			cp := *p
			cp.ID = 7
			stored = &cp
			return nil
		})
	products.EXPECT().
		Update(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ ports.Querier, p *domain.Product) error {
			assert.Equal(t, int64(7), p.ID)
			assert.True(t, p.SalePrice.Equal(stored.SalePrice))
			assert.Equal(t, stored.Category, p.Category)
			return nil
		})
	cache.EXPECT().DeletePattern(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	first, err := svc.Reconcile(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Created)

	second, err := svc.Reconcile(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 1, second.Updated)
}

func TestCatalogService_Search(t *testing.T) {
	t.Run("short_terms_match_nothing", func(t *testing.T) {
		svc, _, _ := newCatalogService(t)

		got, err := svc.Search(context.Background(), " y ")
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NotNil(t, got)
	})

	t.Run("results_are_cached_under_normalized_term", func(t *testing.T) {
		svc, products, cache := newCatalogService(t)
		want := []domain.Product{*helpers.CreateTestProduct()}

		products.EXPECT().Search(gomock.Any(), gomock.Any(), "Yerba", 10).Return(want, nil)
		cache.EXPECT().
			GetOrSet(gomock.Any(), "search:yerba", gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, dest any, fetch func() (any, error), _ any) error {
				v, err := fetch()
				if err != nil {
					return err
				}
				*dest.(*[]domain.Product) = v.([]domain.Product)
				return nil
			})

		got, err := svc.Search(context.Background(), "Yerba")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("without_cache_queries_directly", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		products := mocks.NewMockProductRepository(ctrl)
		svc := services.NewCatalogService(helpers.PassthroughTransactor(ctrl), nil, products, nil, helpers.TestLogger())

		products.EXPECT().Search(gomock.Any(), gomock.Any(), "mate", 10).Return(nil, errors.New("timeout"))

		_, err := svc.Search(context.Background(), "mate")
		assert.ErrorIs(t, err, domain.ErrStorage)
	})
}

func TestCatalogService_Get(t *testing.T) {
	svc, products, _ := newCatalogService(t)
	products.EXPECT().FindByName(gomock.Any(), gomock.Any(), "Ghost").Return(nil, nil)

	_, err := svc.Get(context.Background(), "Ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCatalogService_List_ClampsPageSize(t *testing.T) {
	svc, products, _ := newCatalogService(t)
	products.EXPECT().
		List(gomock.Any(), gomock.Any(), ports.ProductListParams{Limit: 500}).
		Return([]domain.Product{}, int64(0), nil)

	_, total, err := svc.List(context.Background(), ports.ProductListParams{Limit: 10000, Offset: -3})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCatalogService_Create(t *testing.T) {
	tests := []struct {
		name       string
		product    *domain.Product
		setupMocks func(*mocks.MockProductRepository, *mocks.MockCacheRepository)
		wantErr    error
	}{
		{
			name:    "creates_product",
			product: helpers.CreateTestProduct(),
			setupMocks: func(p *mocks.MockProductRepository, c *mocks.MockCacheRepository) {
				p.EXPECT().FindByName(gomock.Any(), gomock.Any(), "Yerba Mate 1kg").Return(nil, nil)
				p.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
				c.EXPECT().DeletePattern(gomock.Any(), gomock.Any()).Return(nil).Times(2)
			},
		},
		{
			name: "zero_price_is_invalid",
			product: helpers.CreateTestProduct(func(p *domain.Product) {
				p.SalePrice = decimal.Zero
			}),
			setupMocks: func(*mocks.MockProductRepository, *mocks.MockCacheRepository) {},
			wantErr:    domain.ErrValidation,
		},
		{
			name:    "duplicate_name_in_other_case_conflicts",
			product: helpers.CreateTestProduct(),
			setupMocks: func(p *mocks.MockProductRepository, c *mocks.MockCacheRepository) {
				p.EXPECT().
					FindByName(gomock.Any(), gomock.Any(), "Yerba Mate 1kg").
					Return(helpers.CreateTestProduct(func(p *domain.Product) { p.Name = "YERBA MATE 1KG" }), nil)
			},
			wantErr: domain.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, products, cache := newCatalogService(t)
			tt.setupMocks(products, cache)

			err := svc.Create(context.Background(), tt.product)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCatalogService_Update(t *testing.T) {
	tests := []struct {
		name       string
		original   string
		product    *domain.Product
		setupMocks func(*mocks.MockProductRepository, *mocks.MockCacheRepository)
		wantErr    error
	}{
		{
			name:     "rename_keeps_identity_and_status",
			original: "Yerba Mate 1kg",
			product: helpers.CreateTestProduct(func(p *domain.Product) {
				p.ID = 0
				p.Name = "Yerba Mate 500g"
				p.Status = ""
			}),
			setupMocks: func(p *mocks.MockProductRepository, c *mocks.MockCacheRepository) {
				existing := helpers.CreateTestProduct(func(p *domain.Product) {
					p.ID = 42
					p.Status = domain.StatusUnavailable
				})
				p.EXPECT().FindByName(gomock.Any(), gomock.Any(), "Yerba Mate 1kg").Return(existing, nil)
				p.EXPECT().FindByName(gomock.Any(), gomock.Any(), "Yerba Mate 500g").Return(nil, nil)
				p.EXPECT().
					Update(gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ ports.Querier, prod *domain.Product) error {
						assert.Equal(t, int64(42), prod.ID)
						assert.Equal(t, domain.StatusUnavailable, prod.Status)
						return nil
					})
				c.EXPECT().DeletePattern(gomock.Any(), gomock.Any()).Return(nil).Times(2)
			},
		},
		{
			name:     "rename_onto_existing_name_conflicts",
			original: "Yerba Mate 1kg",
			product: helpers.CreateTestProduct(func(p *domain.Product) {
				p.Name = "Café"
			}),
			setupMocks: func(p *mocks.MockProductRepository, c *mocks.MockCacheRepository) {
				p.EXPECT().FindByName(gomock.Any(), gomock.Any(), "Yerba Mate 1kg").Return(helpers.CreateTestProduct(), nil)
				p.EXPECT().FindByName(gomock.Any(), gomock.Any(), "Café").Return(helpers.CreateTestProduct(), nil)
			},
			wantErr: domain.ErrConflict,
		},
		{
			name:     "missing_original_is_not_found",
			original: "Ghost",
			product:  helpers.CreateTestProduct(),
			setupMocks: func(p *mocks.MockProductRepository, c *mocks.MockCacheRepository) {
				p.EXPECT().FindByName(gomock.Any(), gomock.Any(), "Ghost").Return(nil, nil)
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name:       "blank_original_name_is_invalid",
			original:   "  ",
			product:    helpers.CreateTestProduct(),
			setupMocks: func(*mocks.MockProductRepository, *mocks.MockCacheRepository) {},
			wantErr:    domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, products, cache := newCatalogService(t)
			tt.setupMocks(products, cache)

			err := svc.Update(context.Background(), tt.original, tt.product)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCatalogService_Delete(t *testing.T) {
	svc, products, cache := newCatalogService(t)
	products.EXPECT().FindByName(gomock.Any(), gomock.Any(), "Yerba Mate 1kg").Return(helpers.CreateTestProduct(), nil)
	products.EXPECT().Delete(gomock.Any(), gomock.Any(), int64(1)).Return(nil)
	cache.EXPECT().DeletePattern(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	require.NoError(t, svc.Delete(context.Background(), "Yerba Mate 1kg"))
}
