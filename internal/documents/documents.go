// Package documents holds the Storefront API queries and mutations together
// with the fragments they are built from.
package documents

import (
	_ "embed"
	"strings"
)

var (
	//go:embed fragments/image.graphql
	imageFragment string
	//go:embed fragments/seo.graphql
	seoFragment string
	//go:embed fragments/product.graphql
	productFragment string
	//go:embed fragments/cart.graphql
	cartFragment string
	//go:embed fragments/collection.graphql
	collectionFragment string
	//go:embed fragments/page.graphql
	pageFragment string

	//go:embed queries/get_cart.graphql
	getCartQuery string
	//go:embed queries/get_collection.graphql
	getCollectionQuery string
	//go:embed queries/get_collections.graphql
	getCollectionsQuery string
	//go:embed queries/get_collection_products.graphql
	getCollectionProductsQuery string
	//go:embed queries/get_menu.graphql
	getMenuQuery string
	//go:embed queries/get_page.graphql
	getPageQuery string
	//go:embed queries/get_pages.graphql
	getPagesQuery string
	//go:embed queries/get_product.graphql
	getProductQuery string
	//go:embed queries/get_products.graphql
	getProductsQuery string
	//go:embed queries/get_product_recommendations.graphql
	getProductRecommendationsQuery string
	//go:embed queries/introspection.graphql
	introspectionQuery string

	//go:embed mutations/add_to_cart.graphql
	addToCartMutation string
	//go:embed mutations/create_cart.graphql
	createCartMutation string
	//go:embed mutations/edit_cart_items.graphql
	editCartItemsMutation string
	//go:embed mutations/remove_from_cart.graphql
	removeFromCartMutation string
)

// Fragments
var (
	ImageFragment      = New("image", imageFragment)
	SEOFragment        = New("seo", seoFragment)
	ProductFragment    = New("product", productFragment, ImageFragment, SEOFragment)
	CartFragment       = New("cart", cartFragment, ImageFragment)
	CollectionFragment = New("collection", collectionFragment, SEOFragment)
	PageFragment       = New("page", pageFragment, SEOFragment)
)

// Queries
var (
	GetCartQuery                   = New("getCart", getCartQuery, CartFragment)
	GetCollectionQuery             = New("getCollection", getCollectionQuery, CollectionFragment)
	GetCollectionsQuery            = New("getCollections", getCollectionsQuery, CollectionFragment)
	GetCollectionProductsQuery     = New("getCollectionProducts", getCollectionProductsQuery, ProductFragment)
	GetMenuQuery                   = New("getMenu", getMenuQuery)
	GetPageQuery                   = New("getPage", getPageQuery, PageFragment)
	GetPagesQuery                  = New("getPages", getPagesQuery, PageFragment)
	GetProductQuery                = New("getProduct", getProductQuery, ProductFragment)
	GetProductsQuery               = New("getProducts", getProductsQuery, ProductFragment)
	GetProductRecommendationsQuery = New("getProductRecommendations", getProductRecommendationsQuery, ProductFragment)
	IntrospectionQuery             = New("IntrospectionQuery", introspectionQuery)
)

// Mutations
var (
	AddToCartMutation      = New("addToCart", addToCartMutation, CartFragment)
	CreateCartMutation     = New("createCart", createCartMutation, CartFragment)
	EditCartItemsMutation  = New("editCartItems", editCartItemsMutation, CartFragment)
	RemoveFromCartMutation = New("removeFromCart", removeFromCartMutation, CartFragment)
)

// Document is a GraphQL document body plus the fragments it spreads.
type Document struct {
	name      string
	body      string
	fragments []*Document
	text      string
}

// New builds a document. The rendered text is computed once: the body
// followed by every transitive fragment, each included a single time.
func New(name, body string, fragments ...*Document) *Document {
	d := &Document{
		name:      name,
		body:      strings.TrimSpace(body),
		fragments: fragments,
	}
	d.text = d.render()
	return d
}

func (d *Document) Name() string {
	return d.name
}

// String returns the document text sent over the wire.
func (d *Document) String() string {
	return d.text
}

// FragmentNames lists the transitive fragments in render order.
func (d *Document) FragmentNames() []string {
	var names []string
	for _, f := range d.dependencies() {
		names = append(names, f.name)
	}
	return names
}

func (d *Document) render() string {
	parts := []string{d.body}
	for _, f := range d.dependencies() {
		parts = append(parts, f.body)
	}
	return strings.Join(parts, "\n\n") + "\n"
}

func (d *Document) dependencies() []*Document {
	seen := make(map[string]bool)
	var out []*Document
	var walk func(*Document)
	walk = func(doc *Document) {
		for _, f := range doc.fragments {
			if seen[f.name] {
				continue
			}
			seen[f.name] = true
			out = append(out, f)
			walk(f)
		}
	}
	walk(d)
	return out
}

// All returns every operation in the registry.
func All() []*Document {
	return []*Document{
		GetCartQuery,
		GetCollectionQuery,
		GetCollectionsQuery,
		GetCollectionProductsQuery,
		GetMenuQuery,
		GetPageQuery,
		GetPagesQuery,
		GetProductQuery,
		GetProductsQuery,
		GetProductRecommendationsQuery,
		IntrospectionQuery,
		AddToCartMutation,
		CreateCartMutation,
		EditCartItemsMutation,
		RemoveFromCartMutation,
	}
}
