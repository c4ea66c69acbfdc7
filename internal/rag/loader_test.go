package rag

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadFolder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "airports.txt", "Lisbon LIS")
	writeFile(t, dir, "hotels.json", `{"portugal": {"lisbon": ["Hotel Avenida", "Pestana"]}}`)
	writeFile(t, dir, "restaurants.yaml", "japan:\n  tokyo: Sushi Dai\n")
	writeFile(t, dir, "prices.csv", "city,price\nLisbon,120\nPorto,90\n")
	writeFile(t, dir, "image.png", "binary")
	writeFile(t, dir, "empty.md", "   ")

	docs, err := LoadFolder(dir)
	require.NoError(t, err)
	require.Len(t, docs, 4)

	bySource := map[string]Document{}
	for _, d := range docs {
		bySource[d.Source] = d
	}
	assert.Equal(t, "Lisbon LIS", bySource["airports.txt"].Content)
	assert.Equal(t, "portugal.lisbon.0: Hotel Avenida\nportugal.lisbon.1: Pestana", bySource["hotels.json"].Content)
	assert.Equal(t, "japan.tokyo: Sushi Dai", bySource["restaurants.yaml"].Content)
	assert.Equal(t, "city: Lisbon, price: 120\ncity: Porto, price: 90\n", bySource["prices.csv"].Content)
	assert.Equal(t, "csv", bySource["prices.csv"].FileType)
}

func TestLoadFolder_BadJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.json", "{")
	_, err := LoadFolder(dir)
	assert.Error(t, err)
}
