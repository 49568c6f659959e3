package config

import "sort"

// Presets are known product-review listings that can be scraped by name.
var Presets = map[string]string{
	"iphone-15":          "https://www.flipkart.com/apple-iphone-15-black-128-gb/product-reviews/itm6ac6485515ae4?pid=MOBGTAGPTB3VS24W",
	"galaxy-a35":         "https://www.flipkart.com/samsung-galaxy-a35-5g-awesome-navy-256-gb/product-reviews/itm2d2e398127998?pid=MOBGYT2HEEYGMZFH",
	"samsung-washer-7kg": "https://www.flipkart.com/samsung-7-kg-5-star-ecobubble-technology-hygiene-steam-digital-inverter-fully-automatic-front-load-washing-machine-in-built-heater-grey/product-reviews/itm1eb327d8b2ee1?pid=WMNGYGJKCVNKSZWY",
	"milton-kettle":      "https://www.flipkart.com/milton-electro-electric-kettle/product-reviews/itm7071829829f15?pid=EKTG26FTFQSG84CG",
	"realme-c61":         "https://www.flipkart.com/realme-c61-safari-green-128-gb/product-reviews/itmd6ddbcefce040?pid=MOBHFRKRAVXUKDGX",
	"marq-ac-2025":       "https://www.flipkart.com/marq-flipkart-2025-1-ton-5-star-split-inverter-5-in-1-convertible-turbo-cool-technology-ac-white/product-reviews/itmfd8dfe14ce4f5?pid=ACNH76Z3Q6TDP42V",
}

// PresetNames returns the preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset looks up a preset URL by name.
func Preset(name string) (string, bool) {
	u, ok := Presets[name]
	return u, ok
}
