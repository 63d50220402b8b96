package catalog

import (
	"strings"

	"github.com/example/orderdesk/pkg/models"
)

const DefaultImage = "https://images.unsplash.com/photo-1555396273-367ea4eb4db5?w=400"

type keywordImage struct {
	keyword string
	url     string
}

// keywordImages is scanned in order and the first hit wins, so compound
// names ("Chicken Salad") resolve to whichever keyword is listed first.
var keywordImages = []keywordImage{
	{"pizza", "https://images.unsplash.com/photo-1565299624946-b28f40a0ae38?w=400"},
	{"burger", "https://images.unsplash.com/photo-1568901346375-23c9450c58cd?w=400"},
	{"salad", "https://images.unsplash.com/photo-1512621776951-a57141f2eefd?w=400"},
	{"sandwich", "https://images.unsplash.com/photo-1528735602780-2552fd46c7af?w=400"},
	{"wrap", "https://images.unsplash.com/photo-1626700051175-6818013e1d4f?w=400"},
	{"chicken", "https://images.unsplash.com/photo-1598103442097-8b74394b95c6?w=400"},
	{"wing", "https://images.unsplash.com/photo-1608039755401-742074f0548d?w=400"},
	{"fries", "https://images.unsplash.com/photo-1573080496219-bb080dd4f877?w=400"},
	{"pasta", "https://images.unsplash.com/photo-1621996346565-e3dbc646d9a9?w=400"},
	{"dessert", "https://images.unsplash.com/photo-1551024601-bec78aea704b?w=400"},
	{"cake", "https://images.unsplash.com/photo-1578985545062-69928b1d9587?w=400"},
	{"ice cream", "https://images.unsplash.com/photo-1497034825429-c343d7c6a68f?w=400"},
	{"coffee", "https://images.unsplash.com/photo-1509042239860-f550ce710b93?w=400"},
	{"drink", "https://images.unsplash.com/photo-1544145945-f90425340c7e?w=400"},
	{"juice", "https://images.unsplash.com/photo-1600271886742-f049cd451bba?w=400"},
	{"shake", "https://images.unsplash.com/photo-1572490122747-3968b75cc699?w=400"},
}

// ResolveImage picks the display image for item: the category's explicit
// image, then a keyword hit on the item name, then a keyword hit on the
// category, then DefaultImage.
func ResolveImage(item models.MenuItem, categories []models.Category) string {
	for _, c := range categories {
		if strings.EqualFold(c.Name, item.Category) && c.ImageURL != "" {
			return c.ImageURL
		}
	}
	if url, ok := matchKeyword(item.Name); ok {
		return url
	}
	if url, ok := matchKeyword(item.Category); ok {
		return url
	}
	return DefaultImage
}

func matchKeyword(s string) (string, bool) {
	s = strings.ToLower(s)
	if s == "" {
		return "", false
	}
	for _, k := range keywordImages {
		if strings.Contains(s, k.keyword) {
			return k.url, true
		}
	}
	return "", false
}
