// Package addresses holds the fixed address directory and its query logic.
package addresses

import (
	"strings"

	"greenscore/pkg/models"
)

type record struct {
	Street string
	City   string
}

var directory = []record{
	{Street: "10 avenue des Champs-Elysées", City: "Paris"},
	{Street: "15 rue des Plantes", City: "Nantes"},
	{Street: "5 rue de la Paix", City: "Lyon"},
	{Street: "12 boulevard Haussmann", City: "Marseille"},
	{Street: "50 rue Nationale", City: "Bordeaux"},
	{Street: "20 avenue des Champs-Elysées", City: "Paris"},
	{Street: "25 rue des Plantes", City: "Nantes"},
	{Street: "10 rue de la Paix", City: "Lyon"},
	{Street: "22 boulevard Haussmann", City: "Marseille"},
	{Street: "60 rue Nationale", City: "Bordeaux"},
	{Street: "30 avenue des Champs-Elysées", City: "Paris"},
	{Street: "35 rue des Plantes", City: "Nantes"},
	{Street: "15 rue de la Paix", City: "Lyon"},
	{Street: "32 boulevard Haussmann", City: "Marseille"},
	{Street: "70 rue Nationale", City: "Bordeaux"},
	{Street: "40 avenue des Champs-Elysées", City: "Paris"},
	{Street: "45 rue des Plantes", City: "Nantes"},
	{Street: "20 rue de la Paix", City: "Lyon"},
	{Street: "42 boulevard Haussmann", City: "Marseille"},
	{Street: "80 rue Nationale", City: "Bordeaux"},
	{Street: "50 avenue des Champs-Elysées", City: "Paris"},
	{Street: "55 rue des Plantes", City: "Nantes"},
	{Street: "25 rue de la Paix", City: "Lyon"},
	{Street: "52 boulevard Haussmann", City: "Marseille"},
	{Street: "90 rue Nationale", City: "Bordeaux"},
	{Street: "60 avenue des Champs-Elysées", City: "Paris"},
	{Street: "65 rue des Plantes", City: "Nantes"},
	{Street: "30 rue de la Paix", City: "Lyon"},
	{Street: "62 boulevard Haussmann", City: "Marseille"},
	{Street: "100 rue Nationale", City: "Bordeaux"},
	{Street: "70 avenue des Champs-Elysées", City: "Paris"},
	{Street: "75 rue des Plantes", City: "Nantes"},
	{Street: "35 rue de la Paix", City: "Lyon"},
	{Street: "72 boulevard Haussmann", City: "Marseille"},
	{Street: "110 rue Nationale", City: "Bordeaux"},
	{Street: "80 avenue des Champs-Elysées", City: "Paris"},
	{Street: "85 rue des Plantes", City: "Nantes"},
	{Street: "40 rue de la Paix", City: "Lyon"},
	{Street: "82 boulevard Haussmann", City: "Marseille"},
	{Street: "120 rue Nationale", City: "Bordeaux"},
	{Street: "90 avenue des Champs-Elysées", City: "Paris"},
	{Street: "95 rue des Plantes", City: "Nantes"},
	{Street: "45 rue de la Paix", City: "Lyon"},
	{Street: "92 boulevard Haussmann", City: "Marseille"},
	{Street: "130 rue Nationale", City: "Bordeaux"},
	{Street: "100 avenue des Champs-Elysées", City: "Paris"},
	{Street: "105 rue des Plantes", City: "Nantes"},
	{Street: "10  avenue du Genetay", City: "Nantua"},
	{Street: "5 Chemin de Bretagne", City: "Issy Les Moulineaux"},
	{Street: "ru de Bretagne", City: "Paimpont"},
	{Street: "50 rue de la Paix", City: "Lyon"},
	{Street: "102 boulevard Haussmann", City: "Marseille"},
	{Street: "chemin des pecheurs", City: "Marseillan"},
	{Street: "140 rue Nationale", City: "Bordeaux"},
}

// Query describes an address lookup. Empty strings mean "not set".
type Query struct {
	Street string
	City   string
	Fields string
	Limit  int
}

// All returns the whole directory in its original order.
func All() []models.Address {
	out := make([]models.Address, 0, len(directory))
	for _, r := range directory {
		out = append(out, r.address())
	}
	return out
}

// Filter returns the addresses whose city and street contain the requested substrings
// (case-insensitive), projected on the requested fields and truncated to q.Limit.
// A non-positive limit yields an empty, non-nil slice.
func Filter(q Query) []models.Address {
	out := []models.Address{}
	if q.Limit <= 0 {
		return out
	}

	for _, r := range directory {
		if q.City != "" && !containsFold(r.City, q.City) {
			continue
		}
		if q.Street != "" && !containsFold(r.Street, q.Street) {
			continue
		}

		out = append(out, r.project(q.Fields))
		if len(out) == q.Limit {
			break
		}
	}

	return out
}

func (r record) address() models.Address {
	street, city := r.Street, r.City
	return models.Address{Street: &street, City: &city}
}

// project keeps only the fields named in mask. An empty mask keeps everything.
func (r record) project(mask string) models.Address {
	a := r.address()
	if mask == "" {
		return a
	}

	if !containsFold(mask, "street") {
		a.Street = nil
	}
	if !containsFold(mask, "city") {
		a.City = nil
	}
	return a
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
