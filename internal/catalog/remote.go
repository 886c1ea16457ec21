package catalog

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ashureev/shopassist/internal/domain"
)

const (
	// DefaultRemoteURL is the public Fake Store API listing.
	DefaultRemoteURL = "https://fakestoreapi.com/products"
	// DefaultRemoteTimeout bounds one listing request.
	DefaultRemoteTimeout = 5 * time.Second

	// remoteIDOffset keeps remote ids clear of the local catalog's.
	remoteIDOffset = 1000
	// usdToINR converts remote USD prices to whole rupees.
	usdToINR          = 80
	descriptionLimit  = 100
	defaultRating     = 4.0
	remoteSite        = "Online Store"
	remoteColor       = "mixed"
	remoteDefaultKind = "electronics"
)

// remoteProduct is the Fake Store API product shape.
type remoteProduct struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Image       string  `json:"image"`
	Rating      struct {
		Rate  float64 `json:"rate"`
		Count int     `json:"count"`
	} `json:"rating"`
}

// RemoteStore lists products from a Fake Store style JSON API.
type RemoteStore struct {
	client *resty.Client
	url    string
}

// NewRemoteStore creates a remote listing client.
func NewRemoteStore(url string, timeout time.Duration) *RemoteStore {
	if url == "" {
		url = DefaultRemoteURL
	}
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &RemoteStore{client: client, url: strings.TrimRight(url, "/")}
}

// Products fetches and converts the remote listing.
func (s *RemoteStore) Products(ctx context.Context) ([]domain.Product, error) {
	var raw []remoteProduct
	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&raw).
		Get(s.url)
	if err != nil {
		return nil, fmt.Errorf("fetch remote catalog: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("remote catalog responded with status: %d", resp.StatusCode())
	}

	products := make([]domain.Product, 0, len(raw))
	for _, rp := range raw {
		products = append(products, s.convert(rp))
	}
	return products, nil
}

func (s *RemoteStore) convert(rp remoteProduct) domain.Product {
	rating := rp.Rating.Rate
	if rating == 0 {
		rating = defaultRating
	}
	return domain.Product{
		ID:          rp.ID + remoteIDOffset,
		Name:        rp.Title,
		Price:       int(math.Round(rp.Price * usdToINR)),
		Color:       remoteColor,
		Category:    remoteCategory(rp.Category),
		Site:        remoteSite,
		Image:       rp.Image,
		Description: truncate(rp.Description, descriptionLimit),
		Rating:      rating,
		StoreURL:    s.url + "/" + strconv.Itoa(rp.ID),
	}
}

func remoteCategory(c string) string {
	switch {
	case strings.Contains(c, "clothing"):
		return "clothing"
	case c == "jewelery":
		return "jewelry"
	default:
		return remoteDefaultKind
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
