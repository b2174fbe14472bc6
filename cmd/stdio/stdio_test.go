package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"testing"
	"time"

	"github.com/rxtech-lab/nft-marketplace/internal/api"
	"github.com/rxtech-lab/nft-marketplace/internal/server"
	"github.com/rxtech-lab/nft-marketplace/internal/services"
	"github.com/stretchr/testify/suite"
)

type StdioServerTestSuite struct {
	suite.Suite
	dbService services.DBService
	apiServer *api.APIServer
	port      int
}

func (suite *StdioServerTestSuite) SetupSuite() {
	dbService, err := services.NewSqliteDBService(":memory:")
	suite.Require().NoError(err)
	suite.dbService = dbService

	svc, err := server.Initialize(server.Dependencies{
		DB:          dbService.GetDB(),
		Connections: services.NewConnectionService(big.NewInt(11155111)),
	})
	suite.Require().NoError(err)

	apiServer, port, err := configureAndStartServer(svc, 0, nil)
	suite.Require().NoError(err)
	suite.Require().NotZero(port, "Port should not be 0")

	suite.apiServer = apiServer
	suite.port = port

	// Wait for server to be ready
	time.Sleep(100 * time.Millisecond)
}

func (suite *StdioServerTestSuite) TearDownSuite() {
	if suite.apiServer != nil {
		suite.apiServer.Shutdown()
	}
	if suite.dbService != nil {
		suite.dbService.Close()
	}
}

func (suite *StdioServerTestSuite) TestRoutesAccessibleWithoutAuth() {
	client := &http.Client{Timeout: 10 * time.Second}

	testRoutes := []struct {
		method      string
		path        string
		description string
	}{
		{"GET", "/health", "health check"},
		{"GET", "/api/nfts", "catalog"},
		{"GET", "/api/activity", "activity feed"},
		{"POST", "/api/listings/listing-1/purchase", "purchase"},
		{"POST", "/api/listings/listing-1/cancel", "cancel"},
	}

	for _, testRoute := range testRoutes {
		req, err := http.NewRequest(testRoute.method, suite.getBaseURL()+testRoute.path, nil)
		suite.Require().NoError(err, "Failed to create request for %s", testRoute.description)

		resp, err := client.Do(req)
		suite.Require().NoError(err, "Failed to make request for %s", testRoute.description)

		suite.NotEqual(http.StatusUnauthorized, resp.StatusCode,
			"Route %s %s (%s) should be accessible without authentication in stdio mode",
			testRoute.method, testRoute.path, testRoute.description)

		_ = resp.Body.Close()
	}
}

func (suite *StdioServerTestSuite) TestTradingDisabledWithoutOperatorKey() {
	client := &http.Client{Timeout: 10 * time.Second}

	req, err := http.NewRequest("POST", suite.getBaseURL()+"/api/listings/listing-1/purchase", nil)
	suite.Require().NoError(err)
	resp, err := client.Do(req)
	suite.Require().NoError(err)
	defer resp.Body.Close()

	suite.Equal(http.StatusServiceUnavailable, resp.StatusCode)
	var body map[string]any
	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	suite.Equal("no_signer", body["kind"])
}

func (suite *StdioServerTestSuite) TestNoMCPEndpointsInStdioMode() {
	client := &http.Client{Timeout: 10 * time.Second}

	for _, path := range []string{"/mcp", "/mcp/sse"} {
		req, err := http.NewRequest("GET", suite.getBaseURL()+path, nil)
		suite.Require().NoError(err)

		resp, err := client.Do(req)
		suite.Require().NoError(err)

		suite.Equal(http.StatusNotFound, resp.StatusCode,
			"MCP endpoint %s should not exist in stdio mode", path)

		_ = resp.Body.Close()
	}
}

func (suite *StdioServerTestSuite) TestMCPServerListsTools() {
	mcpServer := suite.apiServer.GetMCPServer()
	suite.Require().NotNil(mcpServer)
	ctx := context.Background()

	initialize := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test-client","version":"1.0.0"}}}`
	suite.Require().NotNil(mcpServer.GetServer().HandleMessage(ctx, json.RawMessage(initialize)))

	response := mcpServer.GetServer().HandleMessage(ctx, json.RawMessage(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`))
	raw, err := json.Marshal(response)
	suite.Require().NoError(err)

	var decoded struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	suite.Require().NoError(json.Unmarshal(raw, &decoded))

	var names []string
	for _, tool := range decoded.Result.Tools {
		names = append(names, tool.Name)
	}
	suite.ElementsMatch([]string{
		"list_nfts", "get_nft", "get_active_listing", "quote_fee", "list_activity",
		"estimate_gas", "list_nft", "buy_nft", "cancel_listing", "mint_nft", "reconcile_nft",
	}, names)
}

func (suite *StdioServerTestSuite) getBaseURL() string {
	return fmt.Sprintf("http://localhost:%d", suite.port)
}

func TestStdioServerTestSuite(t *testing.T) {
	suite.Run(t, new(StdioServerTestSuite))
}
