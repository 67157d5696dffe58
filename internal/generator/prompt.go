package generator

import (
	"fmt"

	"github.com/nearyou-pipeline/internal/domain"
)

const systemPrompt = "Sei un esperto di marketing di prossimità. Scrivi messaggi brevi, amichevoli e personalizzati in italiano."

const promptTemplate = `Genera un breve messaggio promozionale personalizzato (massimo due frasi) per questo utente:
- Età: %d
- Professione: %s
- Interessi: %s

Il negozio nelle vicinanze:
- Nome: %s
- Categoria: %s
- %s

Il messaggio deve invitare l'utente a visitare il negozio, in tono amichevole e informale.`

// BuildPrompt renders the Italian generation prompt for a profile near
// a shop. The description carries the distance wording.
func BuildPrompt(profile *domain.UserProfile, shop *domain.Shop, description string) string {
	return fmt.Sprintf(promptTemplate,
		profile.Age,
		profile.Profession,
		profile.Interests,
		shop.ShopName,
		shop.Category,
		description,
	)
}
