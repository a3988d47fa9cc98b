package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/hazyhaar/entity-cleaner/pkg/bankid"
	"github.com/hazyhaar/entity-cleaner/pkg/country"
	"github.com/hazyhaar/entity-cleaner/pkg/kit"
	"github.com/hazyhaar/entity-cleaner/pkg/legal"
	"github.com/hazyhaar/entity-cleaner/pkg/namecleaner"
	"github.com/hazyhaar/entity-cleaner/pkg/rules"
)

// MaxBatch is the largest number of names one batch call accepts.
const MaxBatch = 100

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
)

// Service holds what the endpoints read. All fields are required.
type Service struct {
	Names     *namecleaner.Cleaner
	Countries *country.Registry
	Catalog   *rules.Catalog
	Dict      *legal.Dictionary
}

// Shared request/response types for the HTTP and MCP transports.

type cleanNameReq struct {
	Name         string `json:"name"`
	Jurisdiction string `json:"jurisdiction,omitempty"`
	Case         string `json:"case,omitempty"`
}

type cleanBatchReq struct {
	Names []string `json:"names"`
	// Jurisdictions, when set, pairs one jurisdiction with each name.
	Jurisdictions []string `json:"jurisdictions,omitempty"`
	Jurisdiction  string   `json:"jurisdiction,omitempty"`
	Case          string   `json:"case,omitempty"`
}

type batchResponse struct {
	Results []namecleaner.Result `json:"results"`
}

type rulesResponse struct {
	Rules           []rules.Info `json:"rules"`
	DefaultPipeline []string     `json:"default_pipeline"`
}

type legalFormsReq struct {
	Jurisdiction string `json:"jurisdiction,omitempty"`
	Language     string `json:"language,omitempty"`
}

type jurisdictionsResponse struct {
	Jurisdictions []legal.Info `json:"jurisdictions"`
}

type formsResponse struct {
	Jurisdiction string      `json:"jurisdiction"`
	Language     string      `json:"language,omitempty"`
	Forms        legal.Forms `json:"forms"`
}

type countryReq struct {
	Value string `json:"value"`
}

type validateIDReq struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type validateIDResponse struct {
	Type    bankid.Type `json:"type"`
	Input   string      `json:"input"`
	Cleaned string      `json:"cleaned"`
	Valid   bool        `json:"valid"`
}

// endpoints is the action set both transports dispatch to.
type endpoints struct {
	cleanName      kit.Endpoint
	cleanBatch     kit.Endpoint
	listRules      kit.Endpoint
	listLegalForms kit.Endpoint
	lookupCountry  kit.Endpoint
	validateID     kit.Endpoint
}

func makeEndpoints(svc *Service, logger *slog.Logger, limiter *rate.Limiter) endpoints {
	wrap := func(name string, e kit.Endpoint) kit.Endpoint {
		return kit.Chain(kit.Logging(logger, name), kit.RateLimit(limiter))(e)
	}
	return endpoints{
		cleanName:      wrap("clean_name", cleanNameEndpoint(svc)),
		cleanBatch:     wrap("clean_batch", cleanBatchEndpoint(svc)),
		listRules:      wrap("list_rules", listRulesEndpoint(svc)),
		listLegalForms: wrap("list_legal_forms", listLegalFormsEndpoint(svc)),
		lookupCountry:  wrap("lookup_country", lookupCountryEndpoint(svc)),
		validateID:     wrap("validate_id", validateIDEndpoint(svc)),
	}
}

// cleanerFor returns the service cleaner, re-cased when letterCase is set.
func (s *Service) cleanerFor(letterCase string) (*namecleaner.Cleaner, error) {
	if letterCase == "" {
		return s.Names, nil
	}
	c, err := rules.ParseCase(letterCase)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	cfg := s.Names.Config()
	cfg.Case = c
	return s.Names.With(cfg)
}

func cleanNameEndpoint(svc *Service) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*cleanNameReq)
		c, err := svc.cleanerFor(req.Case)
		if err != nil {
			return nil, err
		}
		res, err := c.Inspect(req.Name, req.Jurisdiction)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		return res, nil
	}
}

func cleanBatchEndpoint(svc *Service) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*cleanBatchReq)
		switch {
		case len(req.Names) == 0:
			return nil, fmt.Errorf("%w: names array is empty", ErrInvalidRequest)
		case len(req.Names) > MaxBatch:
			return nil, fmt.Errorf("%w: too many names (max %d, got %d)", ErrInvalidRequest, MaxBatch, len(req.Names))
		case req.Jurisdictions != nil && len(req.Jurisdictions) != len(req.Names):
			return nil, fmt.Errorf("%w: %d jurisdictions for %d names", ErrInvalidRequest, len(req.Jurisdictions), len(req.Names))
		}
		c, err := svc.cleanerFor(req.Case)
		if err != nil {
			return nil, err
		}
		results := make([]namecleaner.Result, len(req.Names))
		for i, name := range req.Names {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			jur := req.Jurisdiction
			if req.Jurisdictions != nil && req.Jurisdictions[i] != "" {
				jur = req.Jurisdictions[i]
			}
			if results[i], err = c.Inspect(name, jur); err != nil {
				return nil, fmt.Errorf("%w: name %d: %w", ErrInvalidRequest, i, err)
			}
		}
		return batchResponse{Results: results}, nil
	}
}

func listRulesEndpoint(svc *Service) kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		return rulesResponse{Rules: svc.Catalog.List(), DefaultPipeline: rules.DefaultPipeline()}, nil
	}
}

func listLegalFormsEndpoint(svc *Service) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req, _ := request.(*legalFormsReq)
		if req == nil || req.Jurisdiction == "" {
			return jurisdictionsResponse{Jurisdictions: svc.Dict.List()}, nil
		}
		forms, ok := svc.Dict.Forms(req.Jurisdiction, req.Language)
		if !ok {
			return nil, fmt.Errorf("%w: no legal forms for %q %q", ErrNotFound, req.Jurisdiction, req.Language)
		}
		return formsResponse{Jurisdiction: req.Jurisdiction, Language: req.Language, Forms: forms}, nil
	}
}

func lookupCountryEndpoint(svc *Service) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*countryReq)
		c, ok := svc.Countries.Search(req.Value)
		if !ok {
			return nil, fmt.Errorf("%w: no country matches %q", ErrNotFound, req.Value)
		}
		return c, nil
	}
}

func validateIDEndpoint(_ *Service) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*validateIDReq)
		kind, err := bankid.ParseType(req.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		cleaned, valid, err := bankid.Validate(kind, req.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		return validateIDResponse{Type: kind, Input: req.Value, Cleaned: cleaned, Valid: valid}, nil
	}
}
