package crypto

import (
	"context"
	"errors"
	"testing"
)

const mempoolTxBody = `{
	"txid":"4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b",
	"vin":[{"prevout":{"value":150000,"scriptpubkey_address":"bc1qsender"}},{"prevout":null}],
	"vout":[{"value":100000,"scriptpubkey_address":"bc1qreceiver"},{"value":45000,"scriptpubkey_address":"bc1qsender"}],
	"size":222,"weight":561,"fee":5000,
	"status":{"confirmed":true,"block_height":840000,"block_time":1713571767}
}`

func TestMempoolTransaction(t *testing.T) {
	srv := serveJSON(t, map[string]string{
		"/tx/4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b": mempoolTxBody,
	})
	m := NewMempool(srv.URL)

	tx, err := m.Transaction(context.Background(), "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b")
	if err != nil {
		t.Fatalf("Transaction() error = %v", err)
	}
	if tx.From != "bc1qsender" || tx.To != "bc1qreceiver" {
		t.Errorf("from/to = %s/%s", tx.From, tx.To)
	}
	if tx.InputTotal.String() != "0.0015" || tx.OutputTotal.String() != "0.00145" || tx.Fee.String() != "0.00005" {
		t.Errorf("totals = %s/%s fee %s", tx.InputTotal, tx.OutputTotal, tx.Fee)
	}
	if tx.Pending || tx.BlockNumber != 840000 || tx.InputCount != 2 {
		t.Errorf("tx = %+v", tx)
	}
}

func TestMempoolAddressTransactions(t *testing.T) {
	srv := serveJSON(t, map[string]string{
		"/address/bc1qsender/txs": "[" + mempoolTxBody + "]",
	})
	m := NewMempool(srv.URL)

	txs, err := m.AddressTransactions(context.Background(), "bc1qsender", 10)
	if err != nil {
		t.Fatalf("AddressTransactions() error = %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("len = %d", len(txs))
	}
	// spent 150000, got 45000 back as change
	if txs[0].Incoming || txs[0].Value.String() != "0.00105" {
		t.Errorf("tx = %+v", txs[0])
	}
}

func TestMempoolTipAndFees(t *testing.T) {
	srv := serveJSON(t, map[string]string{
		"/blocks/tip/height":   "840123",
		"/v1/fees/recommended": `{"fastestFee":30,"halfHourFee":25,"hourFee":20,"economyFee":10,"minimumFee":5}`,
		"/mempool":             `{"count":45678,"vsize":123456789,"total_fee":98765432}`,
	})
	m := NewMempool(srv.URL)
	ctx := context.Background()

	tip, err := m.TipHeight(ctx)
	if err != nil || tip != 840123 {
		t.Errorf("TipHeight() = %d, %v", tip, err)
	}
	fees, err := m.RecommendedFees(ctx)
	if err != nil || fees.Hour != 20 {
		t.Errorf("RecommendedFees() = %+v, %v", fees, err)
	}
	info, err := m.Mempool(ctx)
	if err != nil || info.Count != 45678 {
		t.Errorf("Mempool() = %+v, %v", info, err)
	}
	if _, err := m.Block(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Block(missing) err = %v, want ErrNotFound", err)
	}
}
