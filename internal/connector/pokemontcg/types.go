package pokemontcg

type priceTier struct {
	Low       *float64 `json:"low"`
	Mid       *float64 `json:"mid"`
	High      *float64 `json:"high"`
	Market    *float64 `json:"market"`
	DirectLow *float64 `json:"directLow"`
}

type apiCard struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Number string `json:"number"`
	Rarity string `json:"rarity"`
	Set    struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Series      string `json:"series"`
		ReleaseDate string `json:"releaseDate"`
	} `json:"set"`
	Images struct {
		Small string `json:"small"`
		Large string `json:"large"`
	} `json:"images"`
	TCGPlayer *struct {
		URL       string `json:"url"`
		UpdatedAt string `json:"updatedAt"`
		Prices    *struct {
			Normal             *priceTier `json:"normal"`
			Holofoil           *priceTier `json:"holofoil"`
			ReverseHolofoil    *priceTier `json:"reverseHolofoil"`
			FirstEditionHolo   *priceTier `json:"1stEditionHolofoil"`
			FirstEditionNormal *priceTier `json:"1stEditionNormal"`
		} `json:"prices"`
	} `json:"tcgplayer"`
	CardMarket *struct {
		URL       string `json:"url"`
		UpdatedAt string `json:"updatedAt"`
		Prices    *struct {
			TrendPrice *float64 `json:"trendPrice"`
		} `json:"prices"`
	} `json:"cardmarket"`
}

type searchResponse struct {
	Data       []apiCard `json:"data"`
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
	Count      int       `json:"count"`
	TotalCount int       `json:"totalCount"`
}

type detailResponse struct {
	Data *apiCard `json:"data"`
}
