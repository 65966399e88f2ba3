package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/psyreport-mcp-server/internal/template"
)

// Resource URIs served by the report server
const (
	CategoriesURI   = "psyreport://fields/categories"
	FieldsConfigURI = "psyreport://fields/config"
	TablesURI       = "psyreport://tables"
)

// TableIndex lists the score tables available to the classifier
type TableIndex interface {
	Keys() []string
}

// resourceProvider produces the JSON body of one resource
type resourceProvider func(ctx context.Context) (any, error)

func (s *Server) registerResources() {
	s.addJSONResource(&mcp.Resource{
		URI:         CategoriesURI,
		Name:        "field_categories",
		Description: "Placeholder naming conventions with example names per category.",
		MIMEType:    "application/json",
	}, func(context.Context) (any, error) {
		return template.ExpectedFieldCategories(), nil
	})

	s.addJSONResource(&mcp.Resource{
		URI:         FieldsConfigURI,
		Name:        "template_fields",
		Description: "Free-text template fields grouped by section, as configured.",
		MIMEType:    "application/json",
	}, func(context.Context) (any, error) {
		return s.services.Fields.Sections()
	})

	if s.services.Tables != nil {
		s.addJSONResource(&mcp.Resource{
			URI:         TablesURI,
			Name:        "score_tables",
			Description: "Keys of the score tables loaded for classification.",
			MIMEType:    "application/json",
		}, func(context.Context) (any, error) {
			return s.services.Tables.Keys(), nil
		})
	}
}

func (s *Server) addJSONResource(resource *mcp.Resource, provide resourceProvider) {
	s.mcpServer.AddResource(resource, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		body, err := provide(ctx)
		if err != nil {
			s.logger.WithError(err).WithField("uri", resource.URI).Error("Resource read failed")
			return nil, fmt.Errorf("read %s: %w", resource.URI, err)
		}
		data, err := json.MarshalIndent(body, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", resource.URI, err)
		}
		s.logger.WithField("uri", resource.URI).Debug("Resource read")
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      req.Params.URI,
				MIMEType: resource.MIMEType,
				Text:     string(data),
			}},
		}, nil
	})
}
