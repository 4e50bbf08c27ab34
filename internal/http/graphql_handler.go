package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/graphql-go/graphql"
)

// GraphQLHandler serves the experimental query endpoint. The schema is
// intentionally small; REST remains the primary surface.
type GraphQLHandler struct {
	schema    graphql.Schema
	responder responder
	logger    *slog.Logger
}

func NewGraphQLHandler(logger *slog.Logger) (*GraphQLHandler, error) {
	base := defaultLogger(logger)

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"hello": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return "Hello from MediLink GraphQL", nil
				},
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
	if err != nil {
		return nil, err
	}

	return &GraphQLHandler{schema: schema, responder: newResponder(base), logger: base}, nil
}

func (h *GraphQLHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req graphqlRequest
	if r.Method == http.MethodGet {
		req.Query = r.URL.Query().Get("query")
		req.OperationName = r.URL.Query().Get("operationName")
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        r.Context(),
	})

	h.responder.writeJSON(r.Context(), w, http.StatusOK, result)
}

type graphqlRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}
