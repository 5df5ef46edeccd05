package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/koino/internal/models"
)

// BlockchainService is a façade over the remote loyalty chain gateway.
// The core treats it as an opaque collaborator: every operation either
// succeeds with a receipt-shaped result or fails, and failures surface to
// the caller unmodified. No retries.
type BlockchainService struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewBlockchainService creates a gateway client for the given base URL.
func NewBlockchainService(baseURL, token string) *BlockchainService {
	return &BlockchainService{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// TransferResult is the gateway's proof of a completed token operation.
type TransferResult struct {
	Tx      string         `json:"tx"`
	Receipt models.Receipt `json:"receipt"`
}

// FundResult extends TransferResult with the campaign's contract slot.
type FundResult struct {
	TransferResult
	ContractIndex int `json:"contract_index"`
}

// MemberInfo is a member's on-chain loyalty state.
type MemberInfo struct {
	Address string  `json:"address"`
	Points  float64 `json:"points"`
}

type statusResponse struct {
	Connected bool `json:"connected"`
}

type balanceResponse struct {
	Balance string `json:"balance"`
}

type registerRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// RegisterResult is the gateway's response to account registration.
type RegisterResult struct {
	Address string         `json:"address"`
	Tx      string         `json:"tx"`
	Receipt models.Receipt `json:"receipt"`
}

type pointsRequest struct {
	Points  float64 `json:"points"`
	Member  string  `json:"member"`
	Partner string  `json:"partner"`
}

type scoreResponse struct {
	Points float64 `json:"points"`
}

type countResponse struct {
	Count int64 `json:"count"`
}

type fundRequest struct {
	Member        string  `json:"member"`
	Partner       string  `json:"partner"`
	Tokens        float64 `json:"tokens"`
	ContractIndex int     `json:"contract_index,omitempty"`
}

// IsConnected reports whether the gateway can reach the chain.
func (s *BlockchainService) IsConnected() bool {
	var resp statusResponse
	if err := s.do(http.MethodGet, "/status", nil, &resp); err != nil {
		return false
	}
	return resp.Connected
}

// GetBalance returns the gateway account balance as a numeric string.
func (s *BlockchainService) GetBalance() (string, error) {
	var resp balanceResponse
	if err := s.do(http.MethodGet, "/balance", nil, &resp); err != nil {
		return "", err
	}
	return resp.Balance, nil
}

// RegisterAccount creates a chain account for a new platform user and
// returns its address together with the registration receipt.
func (s *BlockchainService) RegisterAccount(userID uuid.UUID, role models.Role) (*RegisterResult, error) {
	var resp RegisterResult
	if err := s.do(http.MethodPost, "/members", registerRequest{UserID: userID.String(), Role: string(role)}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EarnPoints credits loyalty points to a member on behalf of a partner.
func (s *BlockchainService) EarnPoints(points float64, member, partner string) (*TransferResult, error) {
	var resp TransferResult
	if err := s.do(http.MethodPost, "/points/earn", pointsRequest{Points: points, Member: member, Partner: partner}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UsePoints redeems a member's loyalty points at a partner.
func (s *BlockchainService) UsePoints(points float64, member, partner string) (*TransferResult, error) {
	var resp TransferResult
	if err := s.do(http.MethodPost, "/points/use", pointsRequest{Points: points, Member: member, Partner: partner}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Member returns a member's address and current point balance.
func (s *BlockchainService) Member(address string) (*MemberInfo, error) {
	var resp MemberInfo
	if err := s.do(http.MethodGet, "/members/"+address, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LoyaltyScore returns a member's accumulated loyalty score.
func (s *BlockchainService) LoyaltyScore(address string) (float64, error) {
	var resp scoreResponse
	if err := s.do(http.MethodGet, "/score/"+address, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Points, nil
}

// PartnersInfoLength returns the number of registered partners on chain.
func (s *BlockchainService) PartnersInfoLength() (int64, error) {
	var resp countResponse
	if err := s.do(http.MethodGet, "/info/partners", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// TransactionsInfoLength returns the number of recorded chain transactions.
func (s *BlockchainService) TransactionsInfoLength() (int64, error) {
	var resp countResponse
	if err := s.do(http.MethodGet, "/info/transactions", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// PromiseFund records a backer's pledge against a campaign.
func (s *BlockchainService) PromiseFund(member, partner string, tokens float64) (*FundResult, error) {
	var resp FundResult
	if err := s.do(http.MethodPost, "/funds/promise", fundRequest{Member: member, Partner: partner, Tokens: tokens}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ReceiveFund confirms a pledged fund, moving tokens into the campaign.
func (s *BlockchainService) ReceiveFund(member, partner string, contractIndex int, tokens float64) (*FundResult, error) {
	var resp FundResult
	if err := s.do(http.MethodPost, "/funds/receive", fundRequest{Member: member, Partner: partner, ContractIndex: contractIndex, Tokens: tokens}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RevertFund rolls a confirmed fund back to its pledged state.
func (s *BlockchainService) RevertFund(member, partner string, contractIndex int, tokens float64) (*FundResult, error) {
	var resp FundResult
	if err := s.do(http.MethodPost, "/funds/revert", fundRequest{Member: member, Partner: partner, ContractIndex: contractIndex, Tokens: tokens}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SpendFund redeems tokens from a confirmed fund.
func (s *BlockchainService) SpendFund(member, partner string, contractIndex int, tokens float64) (*FundResult, error) {
	var resp FundResult
	if err := s.do(http.MethodPost, "/funds/spend", fundRequest{Member: member, Partner: partner, ContractIndex: contractIndex, Tokens: tokens}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *BlockchainService) do(method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal chain request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create chain request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute chain request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read chain response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("chain request failed: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("unmarshal chain response: %w", err)
		}
	}

	return nil
}
