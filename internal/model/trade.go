package model

// Phase is a coarse construction lifecycle stage.
type Phase string

const (
	PhaseEarlyConstruction Phase = "early_construction"
	PhaseStructural        Phase = "structural"
	PhaseFinishing         Phase = "finishing"
	PhaseLandscaping       Phase = "landscaping"
)

// Trade is a reference catalog entry for a construction trade.
type Trade struct {
	ID   int    `json:"id" yaml:"id"`
	Slug string `json:"slug" yaml:"slug"`
	Name string `json:"name" yaml:"name"`
}

// Product is a reference catalog entry for a product group.
type Product struct {
	ID   int    `json:"id" yaml:"id"`
	Slug string `json:"slug" yaml:"slug"`
	Name string `json:"name" yaml:"name"`
}

// TradeMatch is a lead: a permit revision paired with a trade and a score.
type TradeMatch struct {
	PermitNum   string  `json:"permit_num"`
	RevisionNum string  `json:"revision_num"`
	TradeID     int     `json:"trade_id"`
	TradeSlug   string  `json:"trade_slug"`
	TradeName   string  `json:"trade_name"`
	Tier        Tier    `json:"tier"`
	Confidence  float64 `json:"confidence"`
	Phase       Phase   `json:"phase"`
	LeadScore   int     `json:"lead_score"`
	IsActive    bool    `json:"is_active"`
}

// ProductMatch pairs a permit revision with a product group.
type ProductMatch struct {
	PermitNum   string `json:"permit_num"`
	RevisionNum string `json:"revision_num"`
	ProductID   int    `json:"product_id"`
	ProductSlug string `json:"product_slug"`
	ProductName string `json:"product_name"`
}
