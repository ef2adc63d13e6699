package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/akaul/splitgate/internal/application"
	"github.com/akaul/splitgate/internal/domain/model"
	"github.com/akaul/splitgate/internal/domain/port/driven"
)

func (s *Server) registerReferenceTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_categories",
		mcp.WithDescription("List expense categories with their subcategories. Use subcategory ids when creating expenses."),
	), s.withGrant(s.handleGetCategories))

	s.mcpServer.AddTool(mcp.NewTool("get_currencies",
		mcp.WithDescription("List the currency codes Splitwise supports."),
	), s.withGrant(s.handleGetCurrencies))
}

func (s *Server) handleGetCategories(ctx context.Context, _ mcp.CallToolRequest, grant *model.Grant, client driven.ExpenseClient) (*mcp.CallToolResult, error) {
	categories, err := s.cachedCategories(ctx, grant.UserID, client)
	if err != nil {
		return upstreamError("get_categories", err), nil
	}
	views := make([]categoryView, 0, len(categories))
	for _, c := range categories {
		views = append(views, toCategoryView(c))
	}
	return jsonResult(views), nil
}

func (s *Server) handleGetCurrencies(ctx context.Context, _ mcp.CallToolRequest, grant *model.Grant, client driven.ExpenseClient) (*mcp.CallToolResult, error) {
	key := application.CacheKey(grant.UserID, "currencies")
	v, err := s.reference.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		return client.Currencies(ctx)
	})
	if err != nil {
		return upstreamError("get_currencies", err), nil
	}
	currencies := v.([]model.Currency)
	views := make([]currencyView, 0, len(currencies))
	for _, c := range currencies {
		views = append(views, currencyView(c))
	}
	return jsonResult(views), nil
}

func (s *Server) cachedCategories(ctx context.Context, userID int64, client driven.ExpenseClient) ([]model.Category, error) {
	key := application.CacheKey(userID, "categories")
	v, err := s.reference.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		return client.Categories(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Category), nil
}
