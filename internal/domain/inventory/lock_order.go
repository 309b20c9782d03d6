package inventory

import "slices"

// SortIDs ordena ids ascendentemente y elimina duplicados (reutiliza el slice).
// Todo bloqueo de varios ingredientes debe adquirirse en este orden.
func SortIDs(ids []string) []string {
	slices.Sort(ids)
	return slices.Compact(ids)
}
