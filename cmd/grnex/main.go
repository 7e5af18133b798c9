package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/grnlabs/grnex/params"
	"github.com/grnlabs/grnex/pkg/exchange"
	"github.com/grnlabs/grnex/pkg/exchange/book"
	"github.com/grnlabs/grnex/pkg/storage"
	"github.com/grnlabs/grnex/pkg/util"
)

func main() {
	cfg := params.LoadFromEnv("")

	logger, err := util.NewLoggerWithFile(cfg.Storage.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	store, err := storage.Open(filepath.Join(cfg.Storage.DataDir, "grnex.db"))
	if err != nil {
		sugar.Fatalw("storage_open_failed", "err", err)
	}
	defer store.Close()

	st, found, err := store.LoadState()
	if err != nil {
		sugar.Fatalw("state_load_failed", "err", err)
	}

	var ex *exchange.Exchange
	if found {
		ex = exchange.Load(util.RealClock{}, st)
		sugar.Infow("state_loaded",
			"wallets", len(st.Wallets),
			"transactions", len(st.Transactions),
			"orders", len(st.Orders))
	} else {
		ex = exchange.New(util.RealClock{})
		sugar.Info("fresh_state")
	}

	fmt.Println("Welcome")
	fmt.Println()
	printCommands()
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "add-wallet":
			cmdAddWallet(ex, sugar, fields[1:])
		case "make-order":
			cmdMakeOrder(ex, sugar, fields[1:])
		case "transfer":
			cmdTransfer(ex, sugar, fields[1:])
		case "wallet-info":
			cmdWalletInfo(ex, fields[1:])
		case "attract-investors":
			cmdAttractInvestors(ex, cfg.Exchange.RichestCount)
		case "quit":
			if err := store.SaveState(ex.DumpState()); err != nil {
				sugar.Errorw("state_save_failed", "err", err)
				fmt.Println("Could not save data")
			} else {
				sugar.Info("state_saved")
				fmt.Println("Successfully saved data")
			}
			return
		default:
			printCommands()
		}
	}
}

func printCommands() {
	fmt.Println("COMMANDS")
	fmt.Println("add-wallet **fiatMoney** **name**")
	fmt.Println("make-order **type** **grnCoins** **walletId**")
	fmt.Println("transfer **senderId** **receiverId** **grnCoins**")
	fmt.Println("wallet-info **walletId**")
	fmt.Println("attract-investors")
	fmt.Println("quit")
}

func cmdAddWallet(ex *exchange.Exchange, sugar *zap.SugaredLogger, args []string) {
	if len(args) != 2 {
		fmt.Println("Usage: add-wallet **fiatMoney** **name**")
		return
	}
	fiat, err := decimal.NewFromString(args[0])
	if err != nil {
		fmt.Println("Invalid fiat amount:", args[0])
		return
	}

	id, err := ex.CreateWallet(args[1], fiat)
	if err != nil {
		sugar.Warnw("wallet_refused", "owner", args[1], "err", err)
		fmt.Println("Could not add wallet")
		return
	}
	sugar.Infow("wallet_created", "id", id, "owner", args[1], "fiat", fiat.String())
	fmt.Printf("Successfully added wallet with ID %d\n", id)
}

func cmdMakeOrder(ex *exchange.Exchange, sugar *zap.SugaredLogger, args []string) {
	if len(args) != 3 {
		fmt.Println("Usage: make-order **type** **grnCoins** **walletId**")
		return
	}

	var side book.Side
	switch args[0] {
	case "buy":
		side = book.Buy
	case "sell":
		side = book.Sell
	default:
		fmt.Println("Invalid type of order")
		return
	}

	qty, err := decimal.NewFromString(args[1])
	if err != nil {
		fmt.Println("Invalid coin amount:", args[1])
		return
	}
	walletID, err := parseWalletID(args[2])
	if err != nil {
		fmt.Println("Invalid wallet ID:", args[2])
		return
	}

	fills, err := ex.SubmitOrder(walletID, side, qty)
	if err != nil {
		sugar.Warnw("order_refused", "wallet", walletID, "side", side.String(), "qty", qty.String(), "err", err)
		fmt.Println("Could not add order")
		return
	}
	sugar.Infow("order_accepted", "wallet", walletID, "side", side.String(), "qty", qty.String(), "fills", len(fills))
	fmt.Println("Successfully added order")
}

func cmdTransfer(ex *exchange.Exchange, sugar *zap.SugaredLogger, args []string) {
	if len(args) != 3 {
		fmt.Println("Usage: transfer **senderId** **receiverId** **grnCoins**")
		return
	}
	senderID, err := parseWalletID(args[0])
	if err != nil {
		fmt.Println("Invalid wallet ID:", args[0])
		return
	}
	receiverID, err := parseWalletID(args[1])
	if err != nil {
		fmt.Println("Invalid wallet ID:", args[1])
		return
	}
	coins, err := decimal.NewFromString(args[2])
	if err != nil {
		fmt.Println("Invalid coin amount:", args[2])
		return
	}

	if err := ex.Transfer(senderID, receiverID, coins); err != nil {
		sugar.Warnw("transfer_refused", "sender", senderID, "receiver", receiverID, "err", err)
		fmt.Println("Unsuccessful transfer")
		return
	}
	sugar.Infow("transfer_done", "sender", senderID, "receiver", receiverID, "coins", coins.String())
	fmt.Println("Successful transfer")
}

func cmdWalletInfo(ex *exchange.Exchange, args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: wallet-info **walletId**")
		return
	}
	walletID, err := parseWalletID(args[0])
	if err != nil {
		fmt.Println("Invalid wallet ID:", args[0])
		return
	}

	snap, err := ex.WalletSnapshot(walletID)
	if err != nil {
		fmt.Printf("There is no wallet with ID: %d\n", walletID)
		return
	}
	fmt.Println("Owner:", snap.Owner)
	fmt.Println("Fiat money:", snap.Fiat)
	fmt.Println("GRN coins:", snap.Coins)
}

func cmdAttractInvestors(ex *exchange.Exchange, count int) {
	for _, inv := range ex.RichestInvestors(count) {
		fmt.Println("Owner:", inv.Owner)
		fmt.Println("Wallet ID:", inv.ID)
		fmt.Println("GRN coins:", inv.Coins)
		fmt.Println("Executed orders:", inv.ExecutedOrders)
		if inv.ExecutedOrders != 0 && inv.HasActivity {
			fmt.Println("First order executed at:", inv.FirstActivity)
			fmt.Println("Last order executed at:", inv.LastActivity)
		}
	}
}

func parseWalletID(s string) (uint32, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(id), nil
}
