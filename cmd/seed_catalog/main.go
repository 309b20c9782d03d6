// seed_catalog genera un script SQL para poblar unidades, ingredientes y plantillas de
// conversión a partir del catálogo XML del proveedor.
//
// Uso: go run ./cmd/seed_catalog [ruta/catalogo.xml] [salida.sql]
// Por defecto lee catalogo.xml del directorio actual y escribe en stdout.
// El stock nunca se siembra: solo cambia a través del libro de movimientos.
package main

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

type catalogo struct {
	Unidades     []unidad      `xml:"unidades>unidad"`
	Ingredientes []ingrediente `xml:"ingredientes>ingrediente"`
}

type unidad struct {
	ID     string `xml:"id,attr"`
	Nombre string `xml:"nombre,attr"`
	Abrev  string `xml:"abrev,attr"`
}

type ingrediente struct {
	ID           string       `xml:"id,attr"`
	Nombre       string       `xml:"nombre,attr"`
	Unidad       string       `xml:"unidad,attr"`
	UnidadCompra string       `xml:"compra,attr"`
	Precio       string       `xml:"precio,attr"`
	Conversiones []conversion `xml:"conversion"`
}

type conversion struct {
	Unidad string `xml:"unidad,attr"`
	Factor string `xml:"factor,attr"`
	Nota   string `xml:"nota,attr"`
}

func main() {
	xmlPath := "catalogo.xml"
	if len(os.Args) > 1 {
		xmlPath = os.Args[1]
	}
	f, err := os.Open(xmlPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir XML: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	c, err := parseCatalog(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Decodificar XML: %v\n", err)
		os.Exit(1)
	}

	var out io.Writer = os.Stdout
	if len(os.Args) > 2 {
		file, err := os.Create(os.Args[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
			os.Exit(1)
		}
		defer file.Close()
		out = file
	}
	if err := writeSQL(out, c); err != nil {
		fmt.Fprintf(os.Stderr, "Generar SQL: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Generado: %d unidades, %d ingredientes\n", len(c.Unidades), len(c.Ingredientes))
}

// parseCatalog decodifica el XML. Los proveedores exportan en Latin-1 o Windows-1252.
func parseCatalog(r io.Reader) (*catalogo, error) {
	var c catalogo
	dec := xml.NewDecoder(r)
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		switch strings.ToUpper(charset) {
		case "ISO-8859-1", "ISO8859-1", "LATIN1":
			return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
		case "WINDOWS-1252", "CP1252":
			return transform.NewReader(input, charmap.Windows1252.NewDecoder()), nil
		}
		return input, nil
	}
	if err := dec.Decode(&c); err != nil {
		return nil, err
	}
	return &c, validate(&c)
}

// validate revisa referencias a unidades y que precios y factores sean decimales válidos.
func validate(c *catalogo) error {
	units := make(map[string]bool, len(c.Unidades))
	for _, u := range c.Unidades {
		if strings.TrimSpace(u.ID) == "" || strings.TrimSpace(u.Nombre) == "" {
			return fmt.Errorf("unidad sin id o nombre")
		}
		units[u.ID] = true
	}
	for _, ing := range c.Ingredientes {
		if strings.TrimSpace(ing.ID) == "" || strings.TrimSpace(ing.Nombre) == "" {
			return fmt.Errorf("ingrediente sin id o nombre")
		}
		if !units[ing.Unidad] {
			return fmt.Errorf("ingrediente %s: unidad de almacenamiento %q desconocida", ing.ID, ing.Unidad)
		}
		if ing.UnidadCompra != "" && !units[ing.UnidadCompra] {
			return fmt.Errorf("ingrediente %s: unidad de compra %q desconocida", ing.ID, ing.UnidadCompra)
		}
		if ing.Precio != "" {
			p, err := decimal.NewFromString(ing.Precio)
			if err != nil || p.IsNegative() {
				return fmt.Errorf("ingrediente %s: precio inválido %q", ing.ID, ing.Precio)
			}
		}
		for _, cv := range ing.Conversiones {
			if !units[cv.Unidad] {
				return fmt.Errorf("ingrediente %s: conversión a unidad %q desconocida", ing.ID, cv.Unidad)
			}
			factor, err := decimal.NewFromString(cv.Factor)
			if err != nil || !factor.IsPositive() {
				return fmt.Errorf("ingrediente %s: factor inválido %q", ing.ID, cv.Factor)
			}
		}
	}
	return nil
}

func writeSQL(w io.Writer, c *catalogo) error {
	var b strings.Builder
	b.WriteString("-- Catálogo de unidades, ingredientes y plantillas de conversión\n")
	b.WriteString("-- Generado por cmd/seed_catalog\n\n")

	units := append([]unidad(nil), c.Unidades...)
	sort.Slice(units, func(i, j int) bool { return units[i].ID < units[j].ID })
	if len(units) > 0 {
		b.WriteString("-- 1. Unidades\n")
		b.WriteString("INSERT INTO units (id, name, abbreviation) VALUES\n")
		for i, u := range units {
			fmt.Fprintf(&b, "  ('%s', '%s', '%s')", escapeSQL(u.ID), escapeSQL(strings.TrimSpace(u.Nombre)), escapeSQL(u.Abrev))
			b.WriteString(separator(i, len(units)))
		}
		b.WriteString("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, abbreviation = EXCLUDED.abbreviation;\n\n")
	}

	ings := append([]ingrediente(nil), c.Ingredientes...)
	sort.Slice(ings, func(i, j int) bool { return ings[i].ID < ings[j].ID })
	if len(ings) > 0 {
		b.WriteString("-- 2. Ingredientes (available_stock no se toca)\n")
		b.WriteString("INSERT INTO ingredients (id, name, storage_unit_id, purchase_unit_id, reference_price) VALUES\n")
		for i, ing := range ings {
			purchase := "NULL"
			if ing.UnidadCompra != "" {
				purchase = "'" + escapeSQL(ing.UnidadCompra) + "'"
			}
			price := "0"
			if ing.Precio != "" {
				price = decimal.RequireFromString(ing.Precio).String()
			}
			fmt.Fprintf(&b, "  ('%s', '%s', '%s', %s, %s)", escapeSQL(ing.ID), escapeSQL(strings.TrimSpace(ing.Nombre)), escapeSQL(ing.Unidad), purchase, price)
			b.WriteString(separator(i, len(ings)))
		}
		b.WriteString("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, storage_unit_id = EXCLUDED.storage_unit_id,\n")
		b.WriteString("  purchase_unit_id = EXCLUDED.purchase_unit_id, reference_price = EXCLUDED.reference_price, updated_at = now();\n\n")
	}

	var templates []string
	for _, ing := range ings {
		for _, cv := range ing.Conversiones {
			templates = append(templates, fmt.Sprintf("  ('%s', '%s', %s, '%s')",
				escapeSQL(ing.ID), escapeSQL(cv.Unidad), decimal.RequireFromString(cv.Factor).String(), escapeSQL(cv.Nota)))
		}
	}
	if len(templates) > 0 {
		b.WriteString("-- 3. Plantillas de conversión\n")
		b.WriteString("INSERT INTO conversion_templates (ingredient_id, target_unit_id, factor, note) VALUES\n")
		for i, t := range templates {
			b.WriteString(t)
			b.WriteString(separator(i, len(templates)))
		}
		b.WriteString("ON CONFLICT (ingredient_id, target_unit_id) DO UPDATE SET factor = EXCLUDED.factor, note = EXCLUDED.note, updated_at = now();\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func separator(i, n int) string {
	if i < n-1 {
		return ",\n"
	}
	return "\n"
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
