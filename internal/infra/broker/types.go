package broker

import "github.com/shopspring/decimal"

// Wire types for the order-routing gateway. Prices travel as strings and
// are parsed into decimals at this boundary only.

type bookLevel struct {
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
}

type orderBookResponse struct {
	Figi string      `json:"figi"`
	Bids []bookLevel `json:"bids"`
	Asks []bookLevel `json:"asks"`
}

type lastPricesResponse struct {
	LastPrices []struct {
		Figi  string          `json:"figi"`
		Price decimal.Decimal `json:"price"`
	} `json:"last_prices"`
}

type postOrderRequest struct {
	Figi          string `json:"figi"`
	Direction     string `json:"direction"`  // buy, sell
	OrderType     string `json:"order_type"` // limit, market
	Quantity      int64  `json:"quantity"`   // whole lots
	Price         string `json:"price,omitempty"`
	ClientOrderID string `json:"client_order_id"`
	AccountID     string `json:"account_id"`
}

type postOrderResponse struct {
	OrderID            string          `json:"order_id"`
	Status             string          `json:"execution_report_status"`
	LotsExecuted       int64           `json:"lots_executed"`
	ExecutedOrderPrice decimal.Decimal `json:"executed_order_price"`
}

type cancelOrderRequest struct {
	OrderID   string `json:"order_id"`
	AccountID string `json:"account_id"`
}

type orderStateResponse struct {
	OrderID            string          `json:"order_id"`
	Status             string          `json:"execution_report_status"`
	LotsExecuted       int64           `json:"lots_executed"`
	ExecutedOrderPrice decimal.Decimal `json:"executed_order_price"`
}

type postStopOrderRequest struct {
	Figi           string `json:"figi"`
	Direction      string `json:"direction"`
	StopOrderType  string `json:"stop_order_type"` // take_profit
	ExpirationType string `json:"expiration_type"` // good_till_date
	Quantity       int64  `json:"quantity"`
	Price          string `json:"price"`
	StopPrice      string `json:"stop_price"`
	ExpireDate     string `json:"expire_date"`
	AccountID      string `json:"account_id"`
}

type postStopOrderResponse struct {
	StopOrderID string `json:"stop_order_id"`
}

// apiError is the gateway's business-error envelope, returned with a
// non-2xx status.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Business error codes.
const (
	codeOrderRejected = "order_rejected"
	codeAlreadyFilled = "already_filled"
	codeOrderNotFound = "order_not_found"
)

// Execution report statuses.
const (
	statusNew             = "new"
	statusPartiallyFilled = "partially_filled"
	statusFill            = "fill"
	statusRejected        = "rejected"
)

func accepted(status string) bool {
	switch status {
	case statusNew, statusPartiallyFilled, statusFill:
		return true
	}
	return false
}

func direction(sell bool) string {
	if sell {
		return "sell"
	}
	return "buy"
}
