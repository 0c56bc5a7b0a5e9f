package view

import (
	"fmt"
	"net/url"
	"strings"

	"gopkg.in/yaml.v3"
)

// Billing intervals.
const (
	IntervalMonthly = "monthly"
	IntervalAnnual  = "annual"
)

// Content is the marketing copy shown on the public pages.
type Content struct {
	Site         Site          `yaml:"site"`
	Hero         Hero          `yaml:"hero"`
	Stats        []Stat        `yaml:"stats"`
	Features     []Feature     `yaml:"features"`
	Testimonials []Testimonial `yaml:"testimonials"`
	CTA          CTA           `yaml:"cta"`
	Plans        []Plan        `yaml:"plans"`
}

type Site struct {
	Name        string `yaml:"name"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

type Hero struct {
	Badge     string `yaml:"badge"`
	Headline  string `yaml:"headline"`
	Highlight string `yaml:"highlight"`
	Subtitle  string `yaml:"subtitle"`
	Tagline   string `yaml:"tagline"`
}

type Stat struct {
	Icon  string `yaml:"icon"`
	Value string `yaml:"value"`
	Label string `yaml:"label"`
}

type Feature struct {
	Icon        string `yaml:"icon"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

type Testimonial struct {
	Quote  string `yaml:"quote"`
	Author string `yaml:"author"`
	Role   string `yaml:"role"`
}

// Initial returns the first letter of the author, used as an avatar.
func (t Testimonial) Initial() string {
	for _, r := range t.Author {
		return string(r)
	}
	return ""
}

type CTA struct {
	Title string `yaml:"title"`
	Text  string `yaml:"text"`
	Note  string `yaml:"note"`
}

// Plan is a subscription tier. Prices are whole dollars per month.
type Plan struct {
	ID           string            `yaml:"id"`
	Name         string            `yaml:"name"`
	Description  string            `yaml:"description"`
	PriceMonthly int               `yaml:"price_monthly"`
	PriceAnnual  int               `yaml:"price_annual"`
	Popular      bool              `yaml:"popular"`
	Features     []string          `yaml:"features"`
	PaymentLinks map[string]string `yaml:"payment_links"`
}

// Price returns the plan price for interval.
func (p Plan) Price(interval string) int {
	if interval == IntervalAnnual {
		return p.PriceAnnual
	}
	return p.PriceMonthly
}

// PaymentLink returns the hosted payment link for interval. When userID is
// set it is passed along as client_reference_id.
func (p Plan) PaymentLink(interval, userID string) string {
	link := p.PaymentLinks[interval]
	if link == "" || userID == "" {
		return link
	}
	sep := "?"
	if strings.Contains(link, "?") {
		sep = "&"
	}
	return link + sep + "client_reference_id=" + url.QueryEscape(userID)
}

// PricingCard is one plan rendered for a given interval and visitor.
type PricingCard struct {
	Plan
	Amount int
	Link   string
}

// PricingData is the pricing page model.
type PricingData struct {
	Interval string
	Cards    []PricingCard
}

// Annual reports whether the annual prices are shown.
func (d PricingData) Annual() bool {
	return d.Interval == IntervalAnnual
}

// NormalizeInterval maps unknown values to monthly.
func NormalizeInterval(interval string) string {
	if strings.ToLower(interval) == IntervalAnnual {
		return IntervalAnnual
	}
	return IntervalMonthly
}

// Pricing builds the pricing page for interval and the optional signed-in user.
func (c *Content) Pricing(interval, userID string) PricingData {
	interval = NormalizeInterval(interval)
	cards := make([]PricingCard, 0, len(c.Plans))
	for _, p := range c.Plans {
		cards = append(cards, PricingCard{
			Plan:   p,
			Amount: p.Price(interval),
			Link:   p.PaymentLink(interval, userID),
		})
	}
	return PricingData{Interval: interval, Cards: cards}
}

func parseContent(data []byte) (*Content, error) {
	var c Content
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse site content: %w", err)
	}
	if len(c.Plans) == 0 {
		return nil, fmt.Errorf("parse site content: no plans defined")
	}
	return &c, nil
}
