package dto_test

import (
	"testing"

	"github.com/jhoicas/inventario-cocina/internal/application/dto"
	"github.com/stretchr/testify/assert"
)

func TestPageRequest_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   dto.PageRequest
		want dto.PageRequest
	}{
		{"sin valores", dto.PageRequest{}, dto.PageRequest{Limit: dto.DefaultPageLimit}},
		{"límite negativo", dto.PageRequest{Limit: -5, Offset: 3}, dto.PageRequest{Limit: dto.DefaultPageLimit, Offset: 3}},
		{"límite sobre el máximo", dto.PageRequest{Limit: 500}, dto.PageRequest{Limit: dto.MaxPageLimit}},
		{"offset negativo", dto.PageRequest{Limit: 10, Offset: -1}, dto.PageRequest{Limit: 10}},
		{"dentro de rango", dto.PageRequest{Limit: 50, Offset: 40}, dto.PageRequest{Limit: 50, Offset: 40}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := tt.in
			page.Normalize()
			assert.Equal(t, tt.want, page)
		})
	}
}
