// Package grpcevaluator implements neural.Evaluator against a remote
// evaluation service over gRPC, so self-play can run against a model
// hosted outside the Go process (a training harness, a GPU worker).
package grpcevaluator

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/samuelbarrett1234/40KLearn/pkg/game"
	"github.com/samuelbarrett1234/40KLearn/pkg/neural"
	"github.com/samuelbarrett1234/40KLearn/pkg/neural/grpcevaluator/evalpb"
)

// Evaluator is a neural.Evaluator backed by a single long-lived gRPC
// connection.
type Evaluator struct {
	conn    *grpc.ClientConn
	client  evalpb.EvaluatorClient
	timeout time.Duration
}

var _ neural.Evaluator = (*Evaluator)(nil)

// Dial connects to the evaluation service at addr. The connection is
// insecure (plaintext); this adapter targets a trusted training
// sidecar, not a public endpoint.
func Dial(addr string, timeout time.Duration) (*Evaluator, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpcevaluator: dial %s: %w", addr, err)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Evaluator{
		conn:    conn,
		client:  evalpb.NewEvaluatorClient(conn),
		timeout: timeout,
	}, nil
}

// Close tears down the underlying connection.
func (e *Evaluator) Close() error {
	return e.conn.Close()
}

// EvaluateBatch implements neural.Evaluator.
func (e *Evaluator) EvaluateBatch(states []game.GameState) ([]float64, [][]float64, error) {
	if len(states) == 0 {
		return nil, nil, nil
	}

	cmdCounts := make([]int, len(states))
	features := make([][]float32, len(states))
	for i, s := range states {
		cmds, err := s.Commands()
		if err != nil {
			return nil, nil, fmt.Errorf("grpcevaluator: %w", err)
		}
		cmdCounts[i] = len(cmds)

		vec := neural.FeatureVector(s)
		row := make([]float32, len(vec))
		for j, v := range vec {
			row[j] = float32(v)
		}
		features[i] = row
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	resp, err := e.client.EvaluateBatch(ctx, &evalpb.EvaluateBatchRequest{Features: features})
	if err != nil {
		return nil, nil, fmt.Errorf("grpcevaluator: EvaluateBatch: %w", err)
	}
	if len(resp.Values) != len(states) || len(resp.Policies) != len(states) {
		return nil, nil, fmt.Errorf("grpcevaluator: server returned %d values / %d policies for %d states",
			len(resp.Values), len(resp.Policies), len(states))
	}

	values := make([]float64, len(states))
	priors := make([][]float64, len(states))
	for i := range states {
		values[i] = float64(resp.Values[i])

		row := resp.Policies[i]
		prior := make([]float64, cmdCounts[i])
		var total float64
		for j := range prior {
			if j < len(row) {
				prior[j] = float64(row[j])
			}
			total += prior[j]
		}
		if total > 0 {
			for j := range prior {
				prior[j] /= total
			}
		} else if len(prior) > 0 {
			share := 1.0 / float64(len(prior))
			for j := range prior {
				prior[j] = share
			}
		}
		priors[i] = prior
	}
	return values, priors, nil
}
