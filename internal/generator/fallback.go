package generator

import (
	"fmt"
	"strings"

	"github.com/nearyou-pipeline/internal/domain"
)

// Canned per-category messages used when the language model is
// unavailable. These are never written to the cache.
var fallbackTemplates = map[string]string{
	"ristorante":    "Ciao %s! %s ti aspetta a pochi passi: fermati per una pausa gustosa!",
	"bar":           "Ciao %s! Un caffè da %s è proprio quello che ci vuole adesso.",
	"abbigliamento": "Ciao %s! Da %s trovi le ultime novità di stagione, dai un'occhiata!",
	"supermercato":  "Ciao %s! %s è qui vicino, approfittane per la spesa di oggi.",
	"elettronica":   "Ciao %s! Da %s trovi le ultime offerte tech a due passi da te.",
}

const defaultFallbackTemplate = "Ciao %s! Dai un'occhiata a %s, è proprio qui vicino!"

// FallbackMessage picks the canned message for the shop's category.
func FallbackMessage(profile *domain.UserProfile, shop *domain.Shop) string {
	name := profile.Profession
	if name == "" {
		name = "amico"
	}

	tmpl, ok := fallbackTemplates[strings.ToLower(shop.Category)]
	if !ok {
		tmpl = defaultFallbackTemplate
	}
	return fmt.Sprintf(tmpl, name, shop.ShopName)
}
