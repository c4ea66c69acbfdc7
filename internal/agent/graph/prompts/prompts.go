package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

var (
	//go:embed template/country.txt
	countrySystem string
	//go:embed template/airport.txt
	airportSystem string
	//go:embed template/weather.txt
	weatherSystem string
	//go:embed template/clothing.txt
	clothingSystem string
	//go:embed template/hotels.txt
	hotelsSystem string
	//go:embed template/restaurants.txt
	restaurantsSystem string
)

// Template pairs a system prompt with an FString user message.
type Template struct {
	Name   string
	System string
	User   string
}

var (
	Country = Template{
		Name:   "country",
		System: countrySystem,
		User: "Budget: {budget} USD\n" +
			"Interests: {interests}\n" +
			"Previous destinations: {previous}\n" +
			"Rejected as too expensive: {rejected}\n" +
			"Trip duration: {duration} days\n" +
			"Departing from: {origin} on {date}\n" +
			"{retry_note}\n" +
			"Based on this information, which ONE country is the best match?",
	}

	Airport = Template{
		Name:   "airport",
		System: airportSystem,
		User:   "Context:\n{context}\n\nLocation query:\n{location}",
	}

	Weather = Template{
		Name:   "weather",
		System: weatherSystem,
		User:   "Weather data for {country}:\n{report}",
	}

	Clothing = Template{
		Name:   "clothing",
		System: clothingSystem,
		User:   "Weather summary: {weather}\nTrip: {duration} days in {country}, interests: {interests}.\nSuggest suitable clothes to wear.",
	}

	Hotels = Template{
		Name:   "hotels",
		System: hotelsSystem,
		User:   "Context:\n{context}\n\nCountry:\n{country}\n\nNightly budget: about {nightly_budget} USD",
	}

	Restaurants = Template{
		Name:   "restaurants",
		System: restaurantsSystem,
		User:   "Context:\n{context}\n\nCountry:\n{country}\n\nInterests: {interests}",
	}
)

// Render formats t through the eino prompt component so prompt callbacks fire.
func Render(ctx context.Context, t Template, vars map[string]any) ([]*schema.Message, error) {
	tpl := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(t.System),
		schema.UserMessage(t.User),
	)
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("render %s prompt: %w", t.Name, err)
	}
	if len(msgs) != 2 {
		return nil, fmt.Errorf("render %s prompt: expected 2 messages, got %d", t.Name, len(msgs))
	}
	return msgs, nil
}
