package sapb1

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/sap"
)

// Client talks to the SAP Business One Service Layer. It implements the
// domain's ItemMasterGateway, SerialValidator and DocumentPoster contracts.
// A login session is shared across calls and refreshed when it expires or the
// Service Layer answers 401.
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *zap.Logger

	mu        sync.Mutex
	sessionID string
	expiresAt time.Time
}

// NewClient creates a new Service Layer client
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	transport := http.DefaultTransport
	if cfg.InsecureSkipVerify {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.requestTimeout(),
			Transport: transport,
		},
		logger: logger.Named("sapb1"),
	}, nil
}

// GetItemMaster fetches the master data for an item code
func (c *Client) GetItemMaster(ctx context.Context, itemCode string) (*sap.ItemMasterData, error) {
	path := fmt.Sprintf("/Items('%s')?$select=ItemCode,ItemName,InventoryUOM,ManageSerialNumbers,ManageBatchNumbers,QuantityOnStock",
		escapeODataLiteral(itemCode))

	var item b1Item
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &item); err != nil {
		return nil, fmt.Errorf("sapb1: item master lookup for %s: %w", itemCode, err)
	}

	return &sap.ItemMasterData{
		ItemCode:      item.ItemCode,
		Description:   item.ItemName,
		UnitOfMeasure: item.InventoryUOM,
		SerialManaged: item.ManageSerialNumber == b1Yes,
		BatchManaged:  item.ManageBatchNumber == b1Yes,
		InStock:       item.QuantityOnStock,
	}, nil
}

// ValidateSerial checks that a serial number exists for the item in the ERP.
// Network failures surface as failed results so the operator sees the line
// parked, not the whole validation pass aborted.
func (c *Client) ValidateSerial(ctx context.Context, itemCode, serialNumber, warehouseCode string) sap.ValidationResult {
	filter := fmt.Sprintf("ItemCode eq '%s' and SerialNumber eq '%s'",
		escapeODataLiteral(itemCode), escapeODataLiteral(serialNumber))
	path := "/SerialNumberDetails?$filter=" + url.QueryEscape(filter)

	var resp b1CollectionResponse[b1SerialDetail]
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		c.logger.Warn("serial validation call failed",
			zap.String("item_code", itemCode),
			zap.String("serial_number", serialNumber),
			zap.Error(err),
		)
		return sap.ValidationResult{Valid: false, Message: "ERP lookup failed: " + err.Error()}
	}

	if len(resp.Value) == 0 {
		return sap.ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("serial %s not found for item %s", serialNumber, itemCode),
		}
	}
	return sap.ValidationResult{Valid: true}
}

// ValidateItem checks that an item code exists and has stock available
func (c *Client) ValidateItem(ctx context.Context, itemCode, warehouseCode string) sap.ValidationResult {
	item, err := c.GetItemMaster(ctx, itemCode)
	if err != nil {
		return sap.ValidationResult{Valid: false, Message: "ERP lookup failed: " + err.Error()}
	}
	if item.InStock.IsZero() || item.InStock.IsNegative() {
		return sap.ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("item %s has no stock available", itemCode),
		}
	}
	return sap.ValidationResult{Valid: true}
}

// PostStockTransfer creates a stock transfer document in the ERP
func (c *Client) PostStockTransfer(ctx context.Context, doc *sap.StockTransferDocument) sap.PostResult {
	body := b1StockTransfer{
		Comments:      doc.Comments,
		JournalMemo:   doc.Reference,
		FromWarehouse: doc.FromWarehouse,
		ToWarehouse:   doc.ToWarehouse,
	}
	for _, line := range doc.Lines {
		b1Line := b1StockTransferLine{
			ItemCode:          line.ItemCode,
			Quantity:          line.Quantity,
			FromWarehouseCode: line.FromWarehouse,
			WarehouseCode:     line.ToWarehouse,
		}
		for _, serial := range line.SerialNumbers {
			b1Line.SerialNumbers = append(b1Line.SerialNumbers, b1StockTransferSerial{
				InternalSerialNumber: serial,
				Quantity:             oneUnit,
			})
		}
		body.StockTransferLines = append(body.StockTransferLines, b1Line)
	}

	var created b1StockTransferResponse
	if err := c.doJSON(ctx, http.MethodPost, "/StockTransfers", body, &created); err != nil {
		c.logger.Error("stock transfer posting failed",
			zap.String("reference", doc.Reference),
			zap.Error(err),
		)
		return sap.PostResult{Success: false, ErrorMessage: err.Error()}
	}

	c.logger.Info("stock transfer posted",
		zap.String("reference", doc.Reference),
		zap.Int("doc_num", created.DocNum),
	)
	return sap.PostResult{Success: true, DocumentNumber: strconv.Itoa(created.DocNum)}
}

// login establishes a new Service Layer session. Caller must hold c.mu.
func (c *Client) login(ctx context.Context) error {
	body, err := json.Marshal(loginRequest{
		CompanyDB: c.config.CompanyDB,
		UserName:  c.config.Username,
		Password:  c.config.Password,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/Login", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed: %s", readErrorMessage(resp))
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("login response: %w", err)
	}
	if lr.SessionID == "" {
		// some Service Layer versions only send the cookie
		for _, cookie := range resp.Cookies() {
			if cookie.Name == "B1SESSION" {
				lr.SessionID = cookie.Value
			}
		}
	}
	if lr.SessionID == "" {
		return fmt.Errorf("login response missing session id")
	}

	c.sessionID = lr.SessionID
	c.expiresAt = time.Now().Add(c.config.sessionTTL())
	c.logger.Debug("service layer session established")
	return nil
}

// session returns a valid session id, logging in when needed
func (c *Client) session(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessionID == "" || time.Now().After(c.expiresAt) {
		if err := c.login(ctx); err != nil {
			return "", err
		}
	}
	return c.sessionID, nil
}

// invalidateSession discards the cached session after a 401
func (c *Client) invalidateSession() {
	c.mu.Lock()
	c.sessionID = ""
	c.mu.Unlock()
}

// doJSON performs an authenticated request. A 401 triggers one re-login and
// retry before the error is returned.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	for attempt := 0; attempt < 2; attempt++ {
		sessionID, err := c.session(ctx)
		if err != nil {
			return err
		}

		var reader io.Reader
		if body != nil {
			payload, err := json.Marshal(body)
			if err != nil {
				return err
			}
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.AddCookie(&http.Cookie{Name: "B1SESSION", Value: sessionID})

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}

		if resp.StatusCode == http.StatusUnauthorized {
			resp.Body.Close()
			c.invalidateSession()
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			msg := readErrorMessage(resp)
			resp.Body.Close()
			return fmt.Errorf("service layer returned %d: %s", resp.StatusCode, msg)
		}

		if out != nil {
			err = json.NewDecoder(resp.Body).Decode(out)
		}
		resp.Body.Close()
		return err
	}
	return fmt.Errorf("service layer rejected session after re-login")
}

// readErrorMessage extracts the error message from a Service Layer response
func readErrorMessage(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(raw) == 0 {
		return resp.Status
	}
	var e b1Error
	if err := json.Unmarshal(raw, &e); err == nil && e.Error.Message.Value != "" {
		return e.Error.Message.Value
	}
	return string(raw)
}

// escapeODataLiteral doubles single quotes inside OData string literals
func escapeODataLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

var oneUnit = decimal.NewFromInt(1)

var (
	_ sap.ItemMasterGateway = (*Client)(nil)
	_ sap.SerialValidator   = (*Client)(nil)
	_ sap.DocumentPoster    = (*Client)(nil)
)
