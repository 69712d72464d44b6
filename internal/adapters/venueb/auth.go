package venueb

// EIP-712 L1 wallet auth (derives API credentials once) plus HMAC-SHA256 L2
// request signing, and integer-precision signed-order construction for the
// on-chain CLOB's exchange contract.

import (
	"context"
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/polymarket/go-order-utils/pkg/builder"
	"github.com/polymarket/go-order-utils/pkg/config"
	gomodel "github.com/polymarket/go-order-utils/pkg/model"
)

const (
	polygonChainID = int64(137)

	clobDomainName    = "ClobAuthDomain"
	clobDomainVersion = "1"
	clobAuthMessage   = "This message attests that I control the given wallet"

	zeroAddress = "0x0000000000000000000000000000000000000000"
)

type apiCredentials struct {
	APIKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// AuthClient wraps Client with L1/L2 authentication for order placement.
type AuthClient struct {
	*Client
	privateKey   *ecdsa.PrivateKey
	address      common.Address
	contracts    *config.Contracts
	orderBuilder builder.ExchangeOrderBuilder
	creds        *apiCredentials
}

// NewAuthClient derives a wallet address from privateKeyHex (no 0x prefix)
// and wraps it around a Client for the given base URLs.
func NewAuthClient(clobBase, gammaBase, privateKeyHex string) (*AuthClient, error) {
	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("venueb auth: invalid private key: %w", err)
	}

	contracts, err := config.GetContracts(polygonChainID)
	if err != nil {
		return nil, fmt.Errorf("venueb auth: get contracts: %w", err)
	}

	ob := builder.NewExchangeOrderBuilderImpl(big.NewInt(polygonChainID), nil)
	addr := crypto.PubkeyToAddress(key.PublicKey)

	return &AuthClient{
		Client:       NewClient(clobBase, gammaBase),
		privateKey:   key,
		address:      addr,
		contracts:    contracts,
		orderBuilder: ob,
	}, nil
}

// Address returns the wallet address funding this venue.
func (ac *AuthClient) Address() string { return ac.address.Hex() }

// EnsureCreds derives (and caches) API credentials via an L1-signed request.
func (ac *AuthClient) EnsureCreds(ctx context.Context) error {
	if ac.creds != nil {
		return nil
	}

	ts := strconv.FormatInt(time.Now().Unix(), 10)
	sig, err := ac.signClobAuth(ts, "0")
	if err != nil {
		return fmt.Errorf("venueb auth: sign l1: %w", err)
	}

	url := fmt.Sprintf("%s/auth/derive-api-key", ac.clobBase)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("venueb auth: derive-api-key request: %w", err)
	}
	req.Header.Set("POLY_ADDRESS", ac.address.Hex())
	req.Header.Set("POLY_SIGNATURE", sig)
	req.Header.Set("POLY_TIMESTAMP", ts)
	req.Header.Set("POLY_NONCE", "0")

	resp, err := ac.http.Do(req)
	if err != nil {
		return fmt.Errorf("venueb auth: derive-api-key: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("venueb auth: derive-api-key status %d: %s", resp.StatusCode, body)
	}

	var creds apiCredentials
	if err := json.Unmarshal(body, &creds); err != nil {
		return fmt.Errorf("venueb auth: parse creds: %w", err)
	}
	ac.creds = &creds
	return nil
}

var (
	eip712DomainTypeHash = crypto.Keccak256Hash([]byte(
		"EIP712Domain(string name,string version,uint256 chainId)",
	))
	clobAuthTypeHash = crypto.Keccak256Hash([]byte(
		"ClobAuth(address address,string timestamp,uint256 nonce,string message)",
	))
)

func clobAuthDomainSeparator() common.Hash {
	var buf []byte
	buf = append(buf, eip712DomainTypeHash.Bytes()...)
	buf = append(buf, crypto.Keccak256Hash([]byte(clobDomainName)).Bytes()...)
	buf = append(buf, crypto.Keccak256Hash([]byte(clobDomainVersion)).Bytes()...)
	buf = append(buf, common.LeftPadBytes(big.NewInt(polygonChainID).Bytes(), 32)...)
	return crypto.Keccak256Hash(buf)
}

func (ac *AuthClient) signClobAuth(timestamp, nonce string) (string, error) {
	nonceInt, ok := new(big.Int).SetString(nonce, 10)
	if !ok {
		return "", fmt.Errorf("invalid nonce: %s", nonce)
	}

	var structBuf []byte
	structBuf = append(structBuf, clobAuthTypeHash.Bytes()...)
	structBuf = append(structBuf, common.LeftPadBytes(ac.address.Bytes(), 32)...)
	structBuf = append(structBuf, crypto.Keccak256Hash([]byte(timestamp)).Bytes()...)
	structBuf = append(structBuf, common.LeftPadBytes(nonceInt.Bytes(), 32)...)
	structBuf = append(structBuf, crypto.Keccak256Hash([]byte(clobAuthMessage)).Bytes()...)
	structHash := crypto.Keccak256Hash(structBuf)

	var rawBuf []byte
	rawBuf = append(rawBuf, 0x19, 0x01)
	rawBuf = append(rawBuf, clobAuthDomainSeparator().Bytes()...)
	rawBuf = append(rawBuf, structHash.Bytes()...)
	msgHash := crypto.Keccak256Hash(rawBuf)

	sig, err := crypto.Sign(msgHash.Bytes(), ac.privateKey)
	if err != nil {
		return "", err
	}
	sig[64] += 27
	return "0x" + fmt.Sprintf("%x", sig), nil
}

func (ac *AuthClient) l2Headers(method, path, body string) (map[string]string, error) {
	if ac.creds == nil {
		return nil, fmt.Errorf("venueb auth: credentials not derived yet")
	}

	ts := strconv.FormatInt(time.Now().Unix(), 10)
	msg := ts + strings.ToUpper(method) + path + body

	secretBytes, err := base64.URLEncoding.DecodeString(ac.creds.Secret)
	if err != nil {
		return nil, fmt.Errorf("venueb auth: decode secret: %w", err)
	}

	mac := hmac.New(sha256.New, secretBytes)
	mac.Write([]byte(msg))
	sig := base64.URLEncoding.EncodeToString(mac.Sum(nil))

	return map[string]string{
		"POLY_ADDRESS":    ac.address.Hex(),
		"POLY_SIGNATURE":  sig,
		"POLY_TIMESTAMP":  ts,
		"POLY_API_KEY":    ac.creds.APIKey,
		"POLY_PASSPHRASE": ac.creds.Passphrase,
	}, nil
}

// doL2 performs an authenticated request with HMAC headers regenerated on
// every retry attempt so the timestamp stays within the server's tolerance.
func (ac *AuthClient) doL2(ctx context.Context, method, path string, reqBody, out any) error {
	var bodyStr string
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		bodyStr = string(b)
	}

	fullURL := ac.clobBase + path

	authRefreshed := false
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ac.clobLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		headers, err := ac.l2Headers(method, path, bodyStr)
		if err != nil {
			return err
		}

		var bodyReader io.Reader
		if bodyStr != "" {
			bodyReader = strings.NewReader(bodyStr)
		}

		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
		if err != nil {
			return fmt.Errorf("new request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := ac.http.Do(req)
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			ac.sleep(ctx, attempt)
			continue
		}

		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			ac.sleep(ctx, attempt)
			continue
		}
		if resp.StatusCode >= 500 {
			if attempt == maxRetries {
				return fmt.Errorf("server error %d: %s", resp.StatusCode, respBody)
			}
			ac.sleep(ctx, attempt)
			continue
		}
		if resp.StatusCode == http.StatusUnauthorized {
			if !authRefreshed {
				authRefreshed = true
				ac.creds = nil
				if err := ac.EnsureCreds(ctx); err != nil {
					return fmt.Errorf("refresh credentials after 401: %w", err)
				}
				continue
			}
			return fmt.Errorf("unauthorized after credential refresh: %s", respBody)
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("client error %d: %s", resp.StatusCode, respBody)
		}

		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// buildSignedOrder produces an EIP-712 signed order using integer arithmetic,
// since the exchange contract rejects float rounding drift:
// makerAmount must equal price * takerAmount exactly.
func (ac *AuthClient) buildSignedOrder(tokenID string, price, size float64, negRisk bool) (*gomodel.SignedOrder, error) {
	pricePrecision := detectPricePrecision(price)
	priceInt := int64(math.Round(price * float64(pricePrecision)))
	sharesCents := int64(math.Floor(size / price * 100))

	amountFactor := int64(1_000_000) / (100 * pricePrecision)
	makerAmount := sharesCents * priceInt * amountFactor
	takerAmount := sharesCents * 10000

	if makerAmount <= 0 || takerAmount <= 0 {
		return nil, fmt.Errorf("invalid amounts: maker=%d taker=%d (price=%.4f size=%.4f)", makerAmount, takerAmount, price, size)
	}

	var verifyingContract gomodel.VerifyingContract
	if negRisk {
		verifyingContract = gomodel.NegRiskCTFExchange
	} else {
		verifyingContract = gomodel.CTFExchange
	}

	orderData := &gomodel.OrderData{
		Maker:         ac.address.Hex(),
		Taker:         zeroAddress,
		TokenId:       tokenID,
		MakerAmount:   strconv.FormatInt(makerAmount, 10),
		TakerAmount:   strconv.FormatInt(takerAmount, 10),
		FeeRateBps:    "0",
		Nonce:         "0",
		Signer:        ac.address.Hex(),
		Expiration:    "0",
		Side:          gomodel.BUY,
		SignatureType: gomodel.EOA,
	}

	signed, err := ac.orderBuilder.BuildSignedOrder(ac.privateKey, orderData, verifyingContract)
	if err != nil {
		return nil, fmt.Errorf("build signed order: %w", err)
	}
	return signed, nil
}

func detectPricePrecision(price float64) int64 {
	for _, prec := range []int64{100, 1000, 10000} {
		rounded := math.Round(price * float64(prec))
		if math.Abs(rounded/float64(prec)-price) < 1e-10 {
			return prec
		}
	}
	return 100
}
