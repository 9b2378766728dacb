package crypto

import (
	"context"
	"testing"
)

func TestBlockchairAddress(t *testing.T) {
	srv := serveJSON(t, map[string]string{
		"/dashboards/address/bc1qxy": `{
			"data":{"bc1qxy":{
				"address":{"balance":250000000,"received":300000000,"spent":50000000,"transaction_count":3,
					"first_seen_receiving":"2021-01-01 10:00:00","last_seen_receiving":"2024-04-01 08:00:00",
					"last_seen_spending":"2024-04-02 09:30:00"},
				"transactions":[
					{"block_id":839990,"hash":"aa","time":"2024-04-02 09:30:00","balance_change":-50000000},
					{"block_id":-1,"hash":"bb","time":"2024-04-20 12:00:00","balance_change":1000}
				]}},
			"context":{"state":840000}
		}`,
	})
	bc := NewBlockchair(srv.URL, "")

	addr, txs, err := bc.Address(context.Background(), "bc1qxy", 10)
	if err != nil {
		t.Fatalf("Address() error = %v", err)
	}
	if addr.Balance.String() != "2.5" || addr.TxCount != 3 {
		t.Errorf("addr = %+v", addr)
	}
	if addr.LastSeen == nil || addr.LastSeen.Day() != 2 {
		t.Errorf("LastSeen = %v", addr.LastSeen)
	}
	if len(txs) != 2 {
		t.Fatalf("len(txs) = %d", len(txs))
	}
	if txs[0].Incoming || txs[0].Value.String() != "0.5" || txs[0].Confirmations != 11 {
		t.Errorf("txs[0] = %+v", txs[0])
	}
	if !txs[1].Pending || txs[1].Confirmations != 0 || !txs[1].Incoming {
		t.Errorf("txs[1] = %+v", txs[1])
	}
}

func TestBlockchairBlockByHeightAndHash(t *testing.T) {
	block := `{"block":{"id":840000,"hash":"0000000000000000000320283a032748cef8227873ff4872689bf23f1cda83a5",
		"time":"2024-04-20 00:09:27","size":2325617,"weight":3993281,"transaction_count":3050,
		"nonce":3932395645,"difficulty":86388558925171.02,"guessed_miner":"ViaBTC"},"transactions":[]}`
	srv := serveJSON(t, map[string]string{
		"/dashboards/block-height/840000": `{"data":{"840000":` + block + `}}`,
		"/dashboards/block/0000000000000000000320283a032748cef8227873ff4872689bf23f1cda83a5": `{"data":{"0000000000000000000320283a032748cef8227873ff4872689bf23f1cda83a5":` + block + `}}`,
	})
	bc := NewBlockchair(srv.URL, "")

	for _, id := range []string{"840000", "0000000000000000000320283a032748cef8227873ff4872689bf23f1cda83a5"} {
		b, err := bc.Block(context.Background(), id)
		if err != nil {
			t.Fatalf("Block(%s) error = %v", id, err)
		}
		if b.Height != 840000 || b.TxCount != 3050 || b.Miner != "ViaBTC" {
			t.Errorf("Block(%s) = %+v", id, b)
		}
	}
}

func TestBlockchairStats(t *testing.T) {
	srv := serveJSON(t, map[string]string{
		"/stats": `{"data":{"blocks":840001,"transactions_24h":512345,"difficulty":86388558925171.02,
			"hashrate_24h":"612345678901234567890","mempool_transactions":45000,
			"suggested_transaction_fee_per_byte_sat":18}}`,
	})
	stats, err := NewBlockchair(srv.URL, "").Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Blocks != 840001 || stats.Transactions24h != 512345 || stats.Hashrate() <= 6e20 {
		t.Errorf("stats = %+v", stats)
	}
}
