package shopify

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"shopify-storefront/internal/cache"
	"shopify-storefront/internal/documents"
	"shopify-storefront/structs"
)

// Session exposes the cart id kept in the visitor's cookie.
type Session interface {
	CartID() string
	SetCartID(id string)
}

// Storefront is the set of named reads and cart mutations the HTTP layer
// calls into.
type Storefront struct {
	client *Client
	loader *cache.Loader
	domain string
	log    Log
	now    func() time.Time
}

func NewStorefront(client *Client, loader *cache.Loader, domain string, log Log) *Storefront {
	return &Storefront{
		client: client,
		loader: loader,
		domain: domain,
		log:    log,
		now:    time.Now,
	}
}

func request(doc *documents.Document, vars map[string]interface{}) Request {
	return Request{
		Operation: doc.Name(),
		Query:     doc.String(),
		Variables: vars,
	}
}

func entry(doc *documents.Document, vars map[string]interface{}, tags ...string) cache.Entry {
	key := doc.Name()
	if len(vars) > 0 {
		// encoding/json sorts map keys, which keeps the key stable
		if encoded, err := json.Marshal(vars); err == nil {
			key += ":" + string(encoded)
		}
	}
	return cache.Entry{Key: key, Tags: tags, Life: cache.Days}
}

type collectionData struct {
	Collection *structs.ShopifyCollection `json:"collection"`
}

func (s *Storefront) GetCollection(ctx context.Context, handle string) (*structs.Collection, error) {
	vars := map[string]interface{}{"handle": handle}
	return cache.Load(ctx, s.loader, entry(documents.GetCollectionQuery, vars, cache.TagCollections),
		func(ctx context.Context) (*structs.Collection, error) {
			data, err := Query[collectionData](ctx, s.client, request(documents.GetCollectionQuery, vars))
			if err != nil {
				return nil, err
			}
			return ReshapeCollection(data.Collection), nil
		})
}

type collectionProductsData struct {
	Collection *struct {
		Products structs.Connection[structs.ShopifyProduct] `json:"products"`
	} `json:"collection"`
}

// GetCollectionProducts lists the visible products of a collection. A
// missing collection yields an empty list.
func (s *Storefront) GetCollectionProducts(ctx context.Context, handle string, reverse bool, sortKey string) ([]structs.Product, error) {
	vars := map[string]interface{}{
		"handle":  handle,
		"reverse": reverse,
	}
	if sortKey == "CREATED_AT" {
		sortKey = "CREATED"
	}
	if sortKey != "" {
		vars["sortKey"] = sortKey
	}

	return cache.Load(ctx, s.loader, entry(documents.GetCollectionProductsQuery, vars, cache.TagCollections, cache.TagProducts),
		func(ctx context.Context) ([]structs.Product, error) {
			data, err := Query[collectionProductsData](ctx, s.client, request(documents.GetCollectionProductsQuery, vars))
			if err != nil {
				return nil, err
			}
			if data.Collection == nil {
				s.log.Info("no collection found", zap.String("handle", handle))
				return []structs.Product{}, nil
			}
			return ReshapeProducts(pointers(RemoveEdgesAndNodes(data.Collection.Products)), true), nil
		})
}

type collectionsData struct {
	Collections structs.Connection[structs.ShopifyCollection] `json:"collections"`
}

// GetCollections returns the synthetic "All" collection followed by every
// collection whose handle does not start with "hidden".
func (s *Storefront) GetCollections(ctx context.Context) ([]structs.Collection, error) {
	visible, err := cache.Load(ctx, s.loader, entry(documents.GetCollectionsQuery, nil, cache.TagCollections),
		func(ctx context.Context) ([]structs.Collection, error) {
			data, err := Query[collectionsData](ctx, s.client, request(documents.GetCollectionsQuery, nil))
			if err != nil {
				return nil, err
			}
			var out []structs.Collection
			for _, c := range ReshapeCollections(pointers(RemoveEdgesAndNodes(data.Collections))) {
				if strings.HasPrefix(c.Handle, "hidden") {
					continue
				}
				out = append(out, c)
			}
			return out, nil
		})
	if err != nil {
		return nil, err
	}

	return append([]structs.Collection{s.allCollection()}, visible...), nil
}

func (s *Storefront) allCollection() structs.Collection {
	return structs.Collection{
		ShopifyCollection: structs.ShopifyCollection{
			Handle:      "",
			Title:       "All",
			Description: "All products",
			SEO: structs.SEO{
				Title:       "All",
				Description: "All products",
			},
			UpdatedAt: s.now().UTC().Format(time.RFC3339),
		},
		Path: "/search",
	}
}

type menuData struct {
	Menu *structs.ShopifyMenu `json:"menu"`
}

func (s *Storefront) GetMenu(ctx context.Context, handle string) ([]structs.Menu, error) {
	vars := map[string]interface{}{"handle": handle}
	return cache.Load(ctx, s.loader, entry(documents.GetMenuQuery, vars, cache.TagCollections),
		func(ctx context.Context) ([]structs.Menu, error) {
			data, err := Query[menuData](ctx, s.client, request(documents.GetMenuQuery, vars))
			if err != nil {
				return nil, err
			}
			menu := []structs.Menu{}
			if data.Menu == nil {
				return menu, nil
			}
			for _, item := range data.Menu.Items {
				menu = append(menu, structs.Menu{
					Title: item.Title,
					Path:  ReshapeMenuPath(item.URL, s.domain),
				})
			}
			return menu, nil
		})
}

type pageData struct {
	PageByHandle *structs.Page `json:"pageByHandle"`
}

func (s *Storefront) GetPage(ctx context.Context, handle string) (*structs.Page, error) {
	data, err := Query[pageData](ctx, s.client, request(documents.GetPageQuery, map[string]interface{}{"handle": handle}))
	if err != nil {
		return nil, err
	}
	return data.PageByHandle, nil
}

type pagesData struct {
	Pages structs.Connection[structs.Page] `json:"pages"`
}

func (s *Storefront) GetPages(ctx context.Context) ([]structs.Page, error) {
	data, err := Query[pagesData](ctx, s.client, request(documents.GetPagesQuery, nil))
	if err != nil {
		return nil, err
	}
	return RemoveEdgesAndNodes(data.Pages), nil
}

type productData struct {
	Product *structs.ShopifyProduct `json:"product"`
}

// GetProduct looks a product up by handle. Hidden products are returned so
// direct links keep working.
func (s *Storefront) GetProduct(ctx context.Context, handle string) (*structs.Product, error) {
	vars := map[string]interface{}{"handle": handle}
	return cache.Load(ctx, s.loader, entry(documents.GetProductQuery, vars, cache.TagProducts),
		func(ctx context.Context) (*structs.Product, error) {
			data, err := Query[productData](ctx, s.client, request(documents.GetProductQuery, vars))
			if err != nil {
				return nil, err
			}
			return ReshapeProduct(data.Product, false), nil
		})
}

type productRecommendationsData struct {
	ProductRecommendations []*structs.ShopifyProduct `json:"productRecommendations"`
}

func (s *Storefront) GetProductRecommendations(ctx context.Context, productID string) ([]structs.Product, error) {
	vars := map[string]interface{}{"productId": productID}
	return cache.Load(ctx, s.loader, entry(documents.GetProductRecommendationsQuery, vars, cache.TagProducts),
		func(ctx context.Context) ([]structs.Product, error) {
			data, err := Query[productRecommendationsData](ctx, s.client, request(documents.GetProductRecommendationsQuery, vars))
			if err != nil {
				return nil, err
			}
			return ReshapeProducts(data.ProductRecommendations, true), nil
		})
}

type productsData struct {
	Products structs.Connection[structs.ShopifyProduct] `json:"products"`
}

// GetProducts searches the catalogue. Empty query and sortKey are left out of
// the request.
func (s *Storefront) GetProducts(ctx context.Context, query string, reverse bool, sortKey string) ([]structs.Product, error) {
	vars := map[string]interface{}{"reverse": reverse}
	if query != "" {
		vars["query"] = query
	}
	if sortKey != "" {
		vars["sortKey"] = sortKey
	}

	return cache.Load(ctx, s.loader, entry(documents.GetProductsQuery, vars, cache.TagProducts),
		func(ctx context.Context) ([]structs.Product, error) {
			data, err := Query[productsData](ctx, s.client, request(documents.GetProductsQuery, vars))
			if err != nil {
				return nil, err
			}
			return ReshapeProducts(pointers(RemoveEdgesAndNodes(data.Products)), true), nil
		})
}

// Invalidate evicts cached reads carrying any of the tags.
func (s *Storefront) Invalidate(ctx context.Context, tags ...string) error {
	return s.loader.Invalidate(ctx, tags...)
}
