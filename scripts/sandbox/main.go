package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/VladKovDev/qpay-gateway/internal/config"
	"github.com/VladKovDev/qpay-gateway/internal/domain/order"
	"github.com/VladKovDev/qpay-gateway/internal/qpay"
	"github.com/VladKovDev/qpay-gateway/internal/repository/postgres"
	"github.com/VladKovDev/qpay-gateway/pkg/logger"
	"github.com/shopspring/decimal"
)

const usage = `Usage:
  %[1]s seed <order_id> <order_key> <total> [email]
  %[1]s itn  <gateway_url> <order_id> <order_key> <amount_minor> [status]

Examples:
  %[1]s seed 1001 wc_order_abc 100.50 buyer@example.com
  %[1]s itn  http://localhost:8080/wc-api/qpay 1001 wc_order_abc 10050 0000
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.Load(os.Getenv("QPAY_GATEWAY_CONFIG_PATH"), ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "seed":
		err = seed(ctx, cfg, os.Args[2:])
	case "itn":
		err = sendITN(ctx, cfg, os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

// seed inserts a pending order so the gateway has something to charge.
func seed(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("seed needs <order_id> <order_key> <total>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid order id %q: %w", args[0], err)
	}
	total, err := decimal.NewFromString(args[2])
	if err != nil {
		return fmt.Errorf("invalid total %q: %w", args[2], err)
	}

	o := &order.Order{
		ID:        id,
		Key:       args[1],
		Total:     total,
		Currency:  cfg.Qpay.StoreCurrency,
		ItemCount: 1,
	}
	if len(args) > 3 {
		o.BillingEmail = args[3]
	}

	pool, err := postgres.NewPool(ctx, &cfg.Database, logger.Noop())
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Migrate(ctx); err != nil {
		return err
	}
	if err := postgres.NewOrderRepository(pool).Create(ctx, o); err != nil {
		return err
	}

	fmt.Printf("Order %d seeded, pay at %s/qpay/pay/%d\n", id, strings.TrimSuffix(cfg.Store.BaseURL, "/"), id)
	return nil
}

// sendITN plays the processor: it signs a notification with the configured
// merchant key and posts it to the gateway.
func sendITN(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 4 {
		return fmt.Errorf("itn needs <gateway_url> <order_id> <order_key> <amount_minor>")
	}
	status := qpay.StatusSuccess
	message := "Transaction Approved"
	if len(args) > 4 && args[4] != qpay.StatusSuccess {
		status = args[4]
		message = "Transaction Declined"
	}

	n := &qpay.Notification{
		AcquirerID:        "SANDBOX",
		Amount:            args[3],
		BankID:            cfg.Qpay.BankID,
		CardHolderName:    "SANDBOX BUYER",
		CardNumber:        "411111XXXXXX1111",
		ConfirmationID:    strconv.FormatInt(time.Now().Unix(), 10),
		CurrencyCode:      cfg.Qpay.CurrencyCode,
		ResponseDate:      time.Now().Format("02012006150405"),
		Lang:              "EN",
		MerchantID:        cfg.Qpay.MerchantID,
		MerchantSessionID: args[2],
		PUN:               args[1],
		Status:            status,
		StatusMessage:     message,
	}
	n.Sign(cfg.Qpay.MerchantKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, args[0], strings.NewReader(n.Form().Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	fmt.Printf("HTTP %d\n%s\n", resp.StatusCode, body)
	return nil
}
