package dto

// Límites de paginación de los listados del libro.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// PageRequest ventana de un listado paginado. Se arma desde la query y se normaliza antes
// de llegar al repositorio.
type PageRequest struct {
	Limit  int
	Offset int
}

// Normalize lleva Limit a [1, MaxPageLimit] (DefaultPageLimit si no viene) y Offset a >= 0.
func (p *PageRequest) Normalize() {
	switch {
	case p.Limit <= 0:
		p.Limit = DefaultPageLimit
	case p.Limit > MaxPageLimit:
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// PageResponse ventana devuelta junto a un listado.
type PageResponse struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
