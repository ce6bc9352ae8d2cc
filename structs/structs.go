package structs

// Connection is the Storefront API pagination wrapper.
type Connection[T any] struct {
	Edges []Edge[T] `json:"edges"`
}

type Edge[T any] struct {
	Cursor string `json:"cursor,omitempty"`
	Node   *T     `json:"node"`
}

// Money carries Shopify's Decimal scalar as a string.
type Money struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
}

type Image struct {
	URL     string `json:"url"`
	AltText string `json:"altText"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

type SEO struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type SelectedOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type ProductOption struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

type Variant struct {
	ID               string           `json:"id"`
	Title            string           `json:"title"`
	AvailableForSale bool             `json:"availableForSale"`
	SelectedOptions  []SelectedOption `json:"selectedOptions"`
	Price            Money            `json:"price"`
}

type PriceRange struct {
	MaxVariantPrice Money `json:"maxVariantPrice"`
	MinVariantPrice Money `json:"minVariantPrice"`
}

// ShopifyProduct is a product as returned by the product fragment.
type ShopifyProduct struct {
	ID               string              `json:"id"`
	Handle           string              `json:"handle"`
	AvailableForSale bool                `json:"availableForSale"`
	Title            string              `json:"title"`
	Description      string              `json:"description"`
	DescriptionHTML  string              `json:"descriptionHtml"`
	Options          []ProductOption     `json:"options"`
	PriceRange       PriceRange          `json:"priceRange"`
	Variants         Connection[Variant] `json:"variants"`
	FeaturedImage    *Image              `json:"featuredImage"`
	Images           Connection[Image]   `json:"images"`
	SEO              SEO                 `json:"seo"`
	Tags             []string            `json:"tags"`
	UpdatedAt        string              `json:"updatedAt"`
}

// Product is the flattened product handed to callers.
type Product struct {
	ID               string          `json:"id"`
	Handle           string          `json:"handle"`
	AvailableForSale bool            `json:"availableForSale"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	DescriptionHTML  string          `json:"descriptionHtml"`
	Options          []ProductOption `json:"options"`
	PriceRange       PriceRange      `json:"priceRange"`
	Variants         []Variant       `json:"variants"`
	FeaturedImage    *Image          `json:"featuredImage"`
	Images           []Image         `json:"images"`
	SEO              SEO             `json:"seo"`
	Tags             []string        `json:"tags"`
	UpdatedAt        string          `json:"updatedAt"`
}

type ShopifyCollection struct {
	Handle      string `json:"handle"`
	Title       string `json:"title"`
	Description string `json:"description"`
	SEO         SEO    `json:"seo"`
	UpdatedAt   string `json:"updatedAt"`
}

type Collection struct {
	ShopifyCollection
	Path string `json:"path"`
}

type CartCost struct {
	SubtotalAmount *Money `json:"subtotalAmount"`
	TotalAmount    Money  `json:"totalAmount"`
	TotalTaxAmount *Money `json:"totalTaxAmount"`
}

type CartProduct struct {
	ID            string `json:"id"`
	Handle        string `json:"handle"`
	Title         string `json:"title"`
	FeaturedImage *Image `json:"featuredImage"`
}

type Merchandise struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	SelectedOptions []SelectedOption `json:"selectedOptions"`
	Product         CartProduct      `json:"product"`
}

type CartLineCost struct {
	TotalAmount Money `json:"totalAmount"`
}

type CartLine struct {
	ID          string       `json:"id"`
	Quantity    int          `json:"quantity"`
	Cost        CartLineCost `json:"cost"`
	Merchandise Merchandise  `json:"merchandise"`
}

type ShopifyCart struct {
	ID            string               `json:"id"`
	CheckoutURL   string               `json:"checkoutUrl"`
	Cost          CartCost             `json:"cost"`
	Lines         Connection[CartLine] `json:"lines"`
	TotalQuantity int                  `json:"totalQuantity"`
}

type Cart struct {
	ID            string     `json:"id"`
	CheckoutURL   string     `json:"checkoutUrl"`
	Cost          CartCost   `json:"cost"`
	Lines         []CartLine `json:"lines"`
	TotalQuantity int        `json:"totalQuantity"`
}

// CartLineInput is the Storefront API CartLineInput.
type CartLineInput struct {
	MerchandiseID string `json:"merchandiseId"`
	Quantity      int    `json:"quantity"`
}

// CartLineUpdateInput is the Storefront API CartLineUpdateInput.
type CartLineUpdateInput struct {
	ID            string `json:"id"`
	MerchandiseID string `json:"merchandiseId"`
	Quantity      int    `json:"quantity"`
}

type MenuItem struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type ShopifyMenu struct {
	Items []MenuItem `json:"items"`
}

type Menu struct {
	Title string `json:"title"`
	Path  string `json:"path"`
}

type Page struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Handle      string `json:"handle"`
	Body        string `json:"body"`
	BodySummary string `json:"bodySummary"`
	SEO         SEO    `json:"seo"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}
