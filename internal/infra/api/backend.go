package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vietddude/bridge/internal/core/domain"
)

// AssociateRequest is the body of POST /users/{id}/associate-address.
type AssociateRequest struct {
	PublicAddress string `json:"public_address"`
	SignedMessage string `json:"signed_message"`
	SignedOn      string `json:"signed_on"`
}

type depositRequest struct {
	Amount json.Number  `json:"amount"`
	Coin   domain.Asset `json:"coin"`
}

type depositsResponse struct {
	Records []domain.HistoryEntry `json:"records"`
}

func userPath(userID string, suffix string) string {
	return "/users/" + url.PathEscape(userID) + suffix
}

// GetUser fetches the identity with its associated addresses.
func (c *Client) GetUser(ctx context.Context, userID string) (domain.Identity, error) {
	var id domain.Identity
	if err := c.doJSON(ctx, "get_user", http.MethodGet, userPath(userID, ""), nil, nil, &id); err != nil {
		return domain.Identity{}, err
	}
	if id.ID == "" {
		id.ID = userID
	}
	return id, nil
}

// AssociateAddress binds a new address to the user. A 400 means the address
// already belongs to another identity.
func (c *Client) AssociateAddress(ctx context.Context, userID string, req AssociateRequest) error {
	const op = "associate_address"
	resp, err := c.do(ctx, op, http.MethodPost, userPath(userID, "/associate-address"), nil, req)
	if err != nil {
		return err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusBadRequest:
		family := domain.ChainFamilyEVM
		if req.SignedOn == domain.ChainFamilyEVM.SignedOnCode() {
			family = domain.ChainFamilySolana
		}
		return &domain.AssociationConflictError{Address: req.PublicAddress, Family: family}
	default:
		return statusError(op, resp)
	}
}

// BuildSolanaDeposit returns the base64 encoded unsigned transaction.
func (c *Client) BuildSolanaDeposit(
	ctx context.Context,
	asset domain.Asset,
	amount decimal.Decimal,
) (string, error) {
	const op = "build_solana_deposit"
	resp, err := c.do(ctx, op, http.MethodPost, "/deposits/solana", nil, depositRequest{
		Amount: json.Number(amount.String()),
		Coin:   asset,
	})
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", statusError(op, resp)
	}

	// The backend answers with a JSON string; tolerate a bare body too.
	var encoded string
	if err := json.Unmarshal(resp.Body, &encoded); err != nil {
		encoded = strings.TrimSpace(string(resp.Body))
	}
	if encoded == "" {
		return "", &domain.TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("empty transaction")}
	}
	return encoded, nil
}

// BuildEthereumDeposit returns the deposit call to send.
func (c *Client) BuildEthereumDeposit(
	ctx context.Context,
	asset domain.Asset,
	amount decimal.Decimal,
) (domain.EVMPayload, error) {
	var payload domain.EVMPayload
	err := c.doJSON(ctx, "build_ethereum_deposit", http.MethodPost, "/deposits/ethereum", nil, depositRequest{
		Amount: json.Number(amount.String()),
		Coin:   asset,
	}, &payload)
	if err != nil {
		return domain.EVMPayload{}, err
	}
	return payload, nil
}

// Quote returns the points a deposit of amount in asset would yield.
func (c *Client) Quote(ctx context.Context, asset domain.Asset, amount decimal.Decimal) (decimal.Decimal, error) {
	query := url.Values{}
	query.Set("coin", string(asset))
	query.Set("amount", amount.String())

	var points decimal.Decimal
	if err := c.doJSON(ctx, "quote", http.MethodGet, "/deposits/quote", query, nil, &points); err != nil {
		return decimal.Zero, err
	}
	return points, nil
}

// ListDeposits returns one page of the user's deposits, most recent first.
func (c *Client) ListDeposits(
	ctx context.Context,
	userID string,
	page, limit int,
) ([]domain.HistoryEntry, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("page", strconv.Itoa(page))

	var resp depositsResponse
	if err := c.doJSON(ctx, "list_deposits", http.MethodGet, userPath(userID, "/deposits"), query, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Records, nil
}
