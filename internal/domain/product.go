package domain

// Product-related domain errors.
var (
	ErrProductNotFound = &Error{Code: ENOTFOUND, Message: "Product not found"}
	ErrVariantNotFound = &Error{Code: ENOTFOUND, Message: "No variant matches the selected options"}

	// ErrVariantNotSelected indicates the product has variants but the
	// selection is incomplete (e.g. color chosen, size missing).
	ErrVariantNotSelected = &Error{Code: EINVALID, Message: "Select a color and size before adding to cart"}

	// ErrSizeUnavailableForColor indicates the chosen color exists but has
	// no variant in the chosen size. Distinct from ErrVariantNotFound so the
	// storefront can render a useful message.
	ErrSizeUnavailableForColor = &Error{Code: EINVALID, Message: "Selected size is unavailable for this color"}
)

// Product is the normalized catalog view this engine operates on.
// Adapters at the collaborator boundary convert whatever shape the catalog
// source uses into this one; the core never sniffs legacy representations.
type Product struct {
	ID       string
	Name     string
	Price    Money
	Currency string

	// Stock is product-level stock, meaningful only for variant-less
	// products; variant products track stock per variant.
	Stock    int
	Variants []Variant
}

// HasVariants reports whether cart lines for this product must reference a
// resolved variant. Variant-less products use a default pseudo-variant.
func (p Product) HasVariants() bool {
	return len(p.Variants) > 0
}

// Variant is a purchasable (color, size) combination with its own price,
// stock and SKU. It is an immutable snapshot from the catalog; the engine
// reads stock counts but never mutates them.
type Variant struct {
	ID      string
	ColorID string
	SizeID  string
	Price   Money
	Stock   int
	SKU     string
}

// InStock reports whether the variant can currently be purchased at all.
func (v Variant) InStock() bool {
	return v.Stock > 0
}
