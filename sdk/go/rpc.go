package dzsdk

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

const defaultMaxRetries = 5

// RPCClient is the subset of the Solana RPC surface the SDK needs. The
// read-only client only calls GetProgramAccounts; the executor uses the
// transaction methods.
type RPCClient interface {
	GetProgramAccounts(ctx context.Context, publicKey solana.PublicKey) (solanarpc.GetProgramAccountsResult, error)
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*solanarpc.GetAccountInfoResult, error)
	SendTransactionWithOpts(context.Context, *solana.Transaction, solanarpc.TransactionOpts) (solana.Signature, error)
	GetLatestBlockhash(context.Context, solanarpc.CommitmentType) (*solanarpc.GetLatestBlockhashResult, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*solanarpc.GetSignatureStatusesResult, error)
	GetTransaction(ctx context.Context, txSig solana.Signature, opts *solanarpc.GetTransactionOpts) (*solanarpc.GetTransactionResult, error)
	GetEpochInfo(ctx context.Context, commitment solanarpc.CommitmentType) (*solanarpc.GetEpochInfoResult, error)
}

// retryHTTPClient wraps an http.Client and retries on 429 Too Many Requests.
type retryHTTPClient struct {
	inner      *http.Client
	maxRetries int
}

func (c *retryHTTPClient) Do(req *http.Request) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		resp, err := c.inner.Do(req)
		if err != nil {
			return resp, err
		}
		if resp.StatusCode != http.StatusTooManyRequests || attempt >= c.maxRetries {
			return resp, nil
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		backoff := time.Duration(attempt+1) * 2 * time.Second
		time.Sleep(backoff)
	}
}

func (c *retryHTTPClient) CloseIdleConnections() {
	c.inner.CloseIdleConnections()
}

// NewRPCClient creates a Solana RPC client with automatic retry on 429 responses.
func NewRPCClient(url string) *solanarpc.Client {
	httpClient := &retryHTTPClient{
		inner:      http.DefaultClient,
		maxRetries: defaultMaxRetries,
	}
	rpcClient := jsonrpc.NewClientWithOpts(url, &jsonrpc.RPCClientOpts{
		HTTPClient: httpClient,
	})
	return solanarpc.NewWithCustomRPCClient(rpcClient)
}
