package session

import "fmt"

// Country is a regional dashboard. Every country works on the default branch.
type Country struct {
	ID     int64  `json:"id"`
	Nombre string `json:"nombre"`
	Slug   string `json:"slug"`
}

var countries = []Country{
	{1, "Nicaragua", "nicaragua"},
	{2, "Honduras", "honduras"},
	{3, "Costa Rica", "costarica"},
	{4, "Panamá", "panama"},
}

const MsgNoDashboard = "Dashboard para este país aún no implementado."

func Countries() []Country {
	return append([]Country(nil), countries...)
}

func CountryByID(id int64) (Country, error) {
	for _, c := range countries {
		if c.ID == id {
			return c, nil
		}
	}
	return Country{}, fmt.Errorf("país %d: %s", id, MsgNoDashboard)
}

// Welcome is the greeting shown after a successful login.
func Welcome(u User) string {
	return fmt.Sprintf("¡Bienvenido %s!", u.Username)
}
