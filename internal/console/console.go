// Package console is the text-menu front end. It is a thin presentation
// layer: every menu action maps 1:1 onto a ledger operation and carries no
// semantics of its own.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/josh-kwaku/bank-ledger/internal/ledger"
	"github.com/josh-kwaku/bank-ledger/internal/money"
)

const maxPINAttempts = 3

type Console struct {
	ledger *ledger.Ledger
	in     *bufio.Scanner
	out    io.Writer
}

func New(l *ledger.Ledger, in io.Reader, out io.Writer) *Console {
	return &Console{
		ledger: l,
		in:     bufio.NewScanner(in),
		out:    out,
	}
}

// Run drives the top-level menu until the user exits, input ends, or the
// context is cancelled.
func (c *Console) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.printf("\n==== Bank Console ====\n")
		c.printf("1. Create account\n")
		c.printf("2. Login\n")
		c.printf("3. List accounts\n")
		c.printf("4. Exit\n")

		choice, err := c.prompt("Select an option: ")
		if err != nil {
			return nil
		}

		switch choice {
		case "1":
			c.createAccount(ctx)
		case "2":
			c.login(ctx)
		case "3":
			c.listAccounts()
		case "4":
			c.printf("Goodbye.\n")
			return nil
		default:
			c.printf("Unknown option %q.\n", choice)
		}
	}
}

func (c *Console) createAccount(ctx context.Context) {
	holder, err := c.prompt("Holder name: ")
	if err != nil {
		return
	}
	if holder == "" {
		c.printf("Holder name cannot be empty.\n")
		return
	}

	pin, err := c.prompt("Choose a 4-digit PIN: ")
	if err != nil {
		return
	}
	if !validPIN(pin) {
		c.printf("PIN must be exactly 4 digits.\n")
		return
	}

	deposit, ok := c.promptAmount("Initial deposit (may be 0): ")
	if !ok {
		return
	}

	a, err := c.ledger.CreateAccount(ctx, holder, pin, deposit)
	if err != nil {
		c.report(err)
		return
	}
	c.printf("Account created. Your account number is %d.\n", a.Number)
}

func (c *Console) login(ctx context.Context) {
	number, ok := c.promptAccountNumber("Account number: ")
	if !ok {
		return
	}

	a, found := c.ledger.FindAccount(number)
	if !found {
		c.printf("Account not found.\n")
		return
	}

	for attempt := 1; attempt <= maxPINAttempts; attempt++ {
		pin, err := c.prompt("PIN: ")
		if err != nil {
			return
		}
		if a.CheckPIN(pin) {
			c.printf("Welcome, %s.\n", a.Holder)
			c.session(ctx, a)
			return
		}
		c.printf("Incorrect PIN (%d/%d).\n", attempt, maxPINAttempts)
	}
	c.printf("Too many failed attempts.\n")
}

func (c *Console) session(ctx context.Context, a *ledger.Account) {
	for {
		if ctx.Err() != nil {
			return
		}

		c.printf("\n-- Account %d --\n", a.Number)
		c.printf("1. Deposit\n")
		c.printf("2. Withdraw\n")
		c.printf("3. Transfer\n")
		c.printf("4. Balance\n")
		c.printf("5. History\n")
		c.printf("6. Logout\n")

		choice, err := c.prompt("Select an option: ")
		if err != nil {
			return
		}

		switch choice {
		case "1":
			if amount, ok := c.promptAmount("Amount to deposit: "); ok {
				if err := c.ledger.Deposit(ctx, a.Number, amount); err != nil {
					c.report(err)
				} else {
					c.printf("Deposited %s. New balance: %s\n", money.Format(amount), money.Format(a.Balance()))
				}
			}
		case "2":
			if amount, ok := c.promptAmount("Amount to withdraw: "); ok {
				if err := c.ledger.Withdraw(ctx, a.Number, amount); err != nil {
					c.report(err)
				} else {
					c.printf("Withdrew %s. New balance: %s\n", money.Format(amount), money.Format(a.Balance()))
				}
			}
		case "3":
			c.transfer(ctx, a)
		case "4":
			c.printf("Balance: %s\n", money.Format(a.Balance()))
		case "5":
			c.history(a.Number)
		case "6":
			return
		default:
			c.printf("Unknown option %q.\n", choice)
		}
	}
}

func (c *Console) transfer(ctx context.Context, a *ledger.Account) {
	to, ok := c.promptAccountNumber("Destination account number: ")
	if !ok {
		return
	}
	amount, ok := c.promptAmount("Amount to transfer: ")
	if !ok {
		return
	}
	if err := c.ledger.Transfer(ctx, a.Number, to, amount); err != nil {
		c.report(err)
		return
	}
	c.printf("Transferred %s to account %d. New balance: %s\n",
		money.Format(amount), to, money.Format(a.Balance()))
}

func (c *Console) history(number int64) {
	records, err := c.ledger.History(number)
	if err != nil {
		c.report(err)
		return
	}
	for _, rec := range records {
		c.printf("%s | %-12s | %10s | Balance: %s\n",
			rec.CreatedAt.Format("2006-01-02 15:04:05"),
			rec.Kind,
			money.Format(rec.Amount),
			money.Format(rec.BalanceAfter),
		)
	}
}

func (c *Console) listAccounts() {
	accounts := c.ledger.ListAccounts()
	if len(accounts) == 0 {
		c.printf("No accounts.\n")
		return
	}
	for _, a := range accounts {
		c.printf("Account %d | %s | Balance: %s\n", a.Number, a.Holder, money.Format(a.Balance()))
	}
}

func (c *Console) prompt(label string) (string, error) {
	c.printf("%s", label)
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(c.in.Text()), nil
}

func (c *Console) promptAmount(label string) (int64, bool) {
	s, err := c.prompt(label)
	if err != nil {
		return 0, false
	}
	amount, err := money.Parse(s)
	if err != nil {
		c.printf("Invalid amount %q.\n", s)
		return 0, false
	}
	return amount, true
}

func (c *Console) promptAccountNumber(label string) (int64, bool) {
	s, err := c.prompt(label)
	if err != nil {
		return 0, false
	}
	number, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		c.printf("Invalid account number %q.\n", s)
		return 0, false
	}
	return number, true
}

func (c *Console) report(err error) {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		c.printf("Insufficient funds.\n")
	case errors.Is(err, domain.ErrAccountNotFound):
		c.printf("Account not found.\n")
	case errors.Is(err, domain.ErrInvalidAmount):
		c.printf("Amount must be positive.\n")
	case errors.Is(err, domain.ErrNegativeDeposit):
		c.printf("Initial deposit cannot be negative.\n")
	default:
		c.printf("Operation failed: %v\n", err)
	}
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func validPIN(pin string) bool {
	if len(pin) != 4 {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
