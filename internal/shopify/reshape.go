package shopify

import (
	"regexp"
	"slices"
	"strings"

	"shopify-storefront/structs"
)

// HiddenProductTag marks products that stay out of public listings.
const HiddenProductTag = "nextjs-frontend-hidden"

var imageFilename = regexp.MustCompile(`.*/(.*)\..*`)

// RemoveEdgesAndNodes flattens a connection into its nodes, skipping edges
// without one.
func RemoveEdgesAndNodes[T any](c structs.Connection[T]) []T {
	nodes := make([]T, 0, len(c.Edges))
	for _, edge := range c.Edges {
		if edge.Node == nil {
			continue
		}
		nodes = append(nodes, *edge.Node)
	}
	return nodes
}

// ReshapeCart flattens cart lines and fills in a zero subtotal in the total's
// currency when the API leaves it out. The input is not modified.
func ReshapeCart(cart *structs.ShopifyCart) (*structs.Cart, error) {
	if cart == nil {
		return nil, ErrNoCartProvided
	}

	cost := cart.Cost
	if cost.SubtotalAmount == nil {
		cost.SubtotalAmount = &structs.Money{
			Amount:       "0.0",
			CurrencyCode: cost.TotalAmount.CurrencyCode,
		}
	}

	return &structs.Cart{
		ID:            cart.ID,
		CheckoutURL:   cart.CheckoutURL,
		Cost:          cost,
		Lines:         RemoveEdgesAndNodes(cart.Lines),
		TotalQuantity: cart.TotalQuantity,
	}, nil
}

func ReshapeCollection(collection *structs.ShopifyCollection) *structs.Collection {
	if collection == nil {
		return nil
	}
	return &structs.Collection{
		ShopifyCollection: *collection,
		Path:              "/search/" + collection.Handle,
	}
}

func ReshapeCollections(collections []*structs.ShopifyCollection) []structs.Collection {
	reshaped := make([]structs.Collection, 0, len(collections))
	for _, c := range collections {
		if rc := ReshapeCollection(c); rc != nil {
			reshaped = append(reshaped, *rc)
		}
	}
	return reshaped
}

// ReshapeImages flattens images and derives alt text from the product title
// and file name where the API has none.
func ReshapeImages(images structs.Connection[structs.Image], productTitle string) []structs.Image {
	flattened := RemoveEdgesAndNodes(images)
	for i, image := range flattened {
		if image.AltText != "" {
			continue
		}
		if m := imageFilename.FindStringSubmatch(image.URL); m != nil {
			flattened[i].AltText = productTitle + " - " + m[1]
		} else {
			flattened[i].AltText = productTitle
		}
	}
	return flattened
}

// ReshapeProduct returns nil for a missing product, or for a hidden one when
// filterHidden is set.
func ReshapeProduct(product *structs.ShopifyProduct, filterHidden bool) *structs.Product {
	if product == nil {
		return nil
	}
	if filterHidden && slices.Contains(product.Tags, HiddenProductTag) {
		return nil
	}

	return &structs.Product{
		ID:               product.ID,
		Handle:           product.Handle,
		AvailableForSale: product.AvailableForSale,
		Title:            product.Title,
		Description:      product.Description,
		DescriptionHTML:  product.DescriptionHTML,
		Options:          product.Options,
		PriceRange:       product.PriceRange,
		Variants:         RemoveEdgesAndNodes(product.Variants),
		FeaturedImage:    product.FeaturedImage,
		Images:           ReshapeImages(product.Images, product.Title),
		SEO:              product.SEO,
		Tags:             product.Tags,
		UpdatedAt:        product.UpdatedAt,
	}
}

func ReshapeProducts(products []*structs.ShopifyProduct, filterHidden bool) []structs.Product {
	reshaped := make([]structs.Product, 0, len(products))
	for _, p := range products {
		if rp := ReshapeProduct(p, filterHidden); rp != nil {
			reshaped = append(reshaped, *rp)
		}
	}
	return reshaped
}

// ReshapeMenuPath turns an absolute storefront URL into an internal route.
func ReshapeMenuPath(url, domain string) string {
	path := strings.Replace(url, domain, "", 1)
	path = strings.Replace(path, "/collections", "/search", 1)
	return strings.Replace(path, "/pages", "", 1)
}

// pointers adapts a flattened connection to the nil-tolerant reshape inputs.
func pointers[T any](items []T) []*T {
	out := make([]*T, len(items))
	for i := range items {
		out[i] = &items[i]
	}
	return out
}
