package shopify

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopify-storefront/structs"
)

func edges[T any](nodes ...*T) structs.Connection[T] {
	c := structs.Connection[T]{Edges: []structs.Edge[T]{}}
	for _, n := range nodes {
		c.Edges = append(c.Edges, structs.Edge[T]{Node: n})
	}
	return c
}

func TestRemoveEdgesAndNodes(t *testing.T) {
	tests := []struct {
		name string
		in   structs.Connection[string]
		want []string
	}{
		{name: "nil edges", in: structs.Connection[string]{}, want: []string{}},
		{name: "zero edges", in: edges[string](), want: []string{}},
		{name: "keeps order", in: edges(ptr("a"), ptr("b"), ptr("c")), want: []string{"a", "b", "c"}},
		{name: "drops null nodes", in: edges[string](ptr("a"), nil, ptr("c"), nil), want: []string{"a", "c"}},
		{name: "all null", in: edges[string](nil, nil), want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RemoveEdgesAndNodes(tt.in)
			require.NotNil(t, got)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("RemoveEdgesAndNodes() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReshapeCartDefaultsSubtotal(t *testing.T) {
	in := &structs.ShopifyCart{
		ID: "gid://shopify/Cart/1",
		Cost: structs.CartCost{
			TotalAmount: structs.Money{Amount: "12.00", CurrencyCode: "USD"},
		},
		Lines: edges[structs.CartLine](&structs.CartLine{ID: "line-1", Quantity: 2}, nil),
	}

	got, err := ReshapeCart(in)
	require.NoError(t, err)

	assert.Equal(t, &structs.Money{Amount: "0.0", CurrencyCode: "USD"}, got.Cost.SubtotalAmount)
	assert.Equal(t, []structs.CartLine{{ID: "line-1", Quantity: 2}}, got.Lines)
	assert.Nil(t, in.Cost.SubtotalAmount, "input must not be modified")
}

func TestReshapeCartKeepsSubtotal(t *testing.T) {
	subtotal := &structs.Money{Amount: "10.00", CurrencyCode: "EUR"}
	in := &structs.ShopifyCart{
		Cost: structs.CartCost{
			SubtotalAmount: subtotal,
			TotalAmount:    structs.Money{Amount: "12.00", CurrencyCode: "EUR"},
		},
	}

	got, err := ReshapeCart(in)
	require.NoError(t, err)
	assert.Equal(t, subtotal, got.Cost.SubtotalAmount)
	assert.Empty(t, got.Lines)
}

func TestReshapeCartIdempotent(t *testing.T) {
	in := &structs.ShopifyCart{
		ID:   "c",
		Cost: structs.CartCost{TotalAmount: structs.Money{Amount: "1.00", CurrencyCode: "USD"}},
	}

	once, err := ReshapeCart(in)
	require.NoError(t, err)

	again, err := ReshapeCart(&structs.ShopifyCart{ID: once.ID, Cost: once.Cost})
	require.NoError(t, err)
	assert.Equal(t, once.Cost, again.Cost)
}

func TestReshapeCartNil(t *testing.T) {
	_, err := ReshapeCart(nil)
	assert.ErrorIs(t, err, ErrNoCartProvided)
}

func TestReshapeCollection(t *testing.T) {
	assert.Nil(t, ReshapeCollection(nil))

	got := ReshapeCollection(&structs.ShopifyCollection{Handle: "summer", Title: "Summer"})
	require.NotNil(t, got)
	assert.Equal(t, "/search/summer", got.Path)
	assert.Equal(t, "Summer", got.Title)
}

func TestReshapeCollectionsDropsNil(t *testing.T) {
	got := ReshapeCollections([]*structs.ShopifyCollection{
		{Handle: "a"},
		nil,
		{Handle: "b"},
	})

	require.Len(t, got, 2)
	assert.Equal(t, "/search/a", got[0].Path)
	assert.Equal(t, "/search/b", got[1].Path)
}

func TestReshapeImages(t *testing.T) {
	images := edges[structs.Image](
		&structs.Image{URL: "https://cdn.example.com/img/photo-1.jpg"},
		&structs.Image{URL: "https://cdn.example.com/img/kept.png", AltText: "Kept"},
		nil,
		&structs.Image{URL: "no-extension"},
	)

	got := ReshapeImages(images, "Linen Shirt")

	require.Len(t, got, 3)
	assert.Equal(t, "Linen Shirt - photo-1", got[0].AltText)
	assert.Contains(t, got[0].AltText, "photo-1")
	assert.Equal(t, "Kept", got[1].AltText)
	assert.Equal(t, "Linen Shirt", got[2].AltText)
}

func TestReshapeImagesWithQueryString(t *testing.T) {
	got := ReshapeImages(edges(&structs.Image{URL: "https://cdn.shopify.com/files/tee.webp?v=1700"}), "Tee")

	assert.Equal(t, "Tee - tee", got[0].AltText)
}

func hiddenProduct() *structs.ShopifyProduct {
	return &structs.ShopifyProduct{
		ID:       "gid://shopify/Product/1",
		Handle:   "secret",
		Title:    "Secret",
		Tags:     []string{"sale", HiddenProductTag},
		Variants: edges(&structs.Variant{ID: "v1"}),
		Images:   edges(&structs.Image{URL: "https://cdn.example.com/a/secret.jpg"}),
	}
}

func TestReshapeProductHidden(t *testing.T) {
	assert.Nil(t, ReshapeProduct(hiddenProduct(), true))

	got := ReshapeProduct(hiddenProduct(), false)
	require.NotNil(t, got)
	assert.Equal(t, "secret", got.Handle)
	assert.Equal(t, []structs.Variant{{ID: "v1"}}, got.Variants)
	assert.Equal(t, "Secret - secret", got.Images[0].AltText)
}

func TestReshapeProductNil(t *testing.T) {
	assert.Nil(t, ReshapeProduct(nil, true))
	assert.Nil(t, ReshapeProduct(nil, false))
}

func TestReshapeProducts(t *testing.T) {
	visible := &structs.ShopifyProduct{Handle: "shirt", Title: "Shirt"}
	in := []*structs.ShopifyProduct{visible, nil, hiddenProduct()}

	filtered := ReshapeProducts(in, true)
	require.Len(t, filtered, 1)
	assert.Equal(t, "shirt", filtered[0].Handle)
	assert.Equal(t, []structs.Image{}, filtered[0].Images)

	assert.Len(t, ReshapeProducts(in, false), 2)
}

func TestReshapeMenuPath(t *testing.T) {
	domain := "https://store.example.com"
	tests := []struct {
		url  string
		want string
	}{
		{"https://store.example.com/collections/shoes", "/search/shoes"},
		{"https://store.example.com/pages/about", "/about"},
		{"https://store.example.com/products/tee", "/products/tee"},
		{"https://store.example.com", ""},
		{"https://other.example.com/collections/x", "https://other.example.com/search/x"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ReshapeMenuPath(tt.url, domain), tt.url)
	}
}

func ptr[T any](v T) *T {
	return &v
}
