package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iota-uz/bookkeeper/modules/imports/domain/entities/importmapping"
	"github.com/iota-uz/bookkeeper/modules/ledger/domain/aggregates/transaction"
	"github.com/iota-uz/bookkeeper/modules/ledger/domain/entities/entity"
	"github.com/iota-uz/bookkeeper/pkg/constants"
	"github.com/iota-uz/bookkeeper/pkg/serrors"
)

const uniqueIDSeparator = "|"

var fallbackDateLayouts = []string{
	constants.DateLayout,
	"2006/01/02",
	"01/02/2006",
	"02.01.2006",
	time.RFC3339,
	"Jan 2, 2006",
}

// validated runs ok on dto and returns its JSON form, or the validation messages.
func validated(dto any, ok func() (serrors.ValidationErrors, bool)) (json.RawMessage, []string) {
	if errs, valid := ok(); !valid {
		return nil, errs.Messages()
	}
	raw, err := json.Marshal(dto)
	if err != nil {
		return nil, []string{"row: " + err.Error()}
	}
	return raw, nil
}

// applyMapping builds a transaction CreateDTO from a foreign row. Every problem is reported,
// not only the first.
func applyMapping(cfg importmapping.Config, row Row) (transaction.CreateDTO, []string) {
	var (
		dto  transaction.CreateDTO
		errs []string
	)
	col := func(name string) string {
		if name == "" {
			return ""
		}
		return cellString(row[name])
	}
	missing := func(name string) {
		if _, ok := row[name]; !ok {
			errs = append(errs, fmt.Sprintf("column %q is missing", name))
		}
	}

	missing(cfg.DateColumn)
	if raw := col(cfg.DateColumn); raw != "" {
		d, err := parseMappedDate(raw, cfg.DateFormat)
		if err != nil {
			errs = append(errs, err.Error())
		} else {
			dto.Date = d.Format(constants.DateLayout)
		}
	}

	missing(cfg.DescriptionColumn)
	dto.Description = col(cfg.DescriptionColumn)

	amount, err := mappedAmount(cfg, col)
	if err != nil {
		errs = append(errs, err.Error())
	} else {
		if cfg.ReverseAmount {
			amount = amount.Neg()
		}
		dto.Amount = transaction.Amount(amount.String())
	}

	if cfg.AccountColumn != "" {
		missing(cfg.AccountColumn)
		dto.Account = entity.Ref{Title: col(cfg.AccountColumn)}
	} else {
		dto.Account = entity.Ref{Title: strings.TrimSpace(cfg.AccountTitle)}
	}
	dto.Category = titleRef(col(cfg.CategoryColumn))
	dto.Bill = titleRef(col(cfg.BillColumn))
	dto.Budget = titleRef(col(cfg.BudgetColumn))
	dto.Tag = titleRef(col(cfg.TagColumn))

	for _, c := range cfg.LabelColumns {
		for _, part := range strings.Split(col(c), ";") {
			if part = strings.TrimSpace(part); part != "" {
				dto.Labels = append(dto.Labels, entity.Ref{Title: part})
			}
		}
	}

	if len(cfg.UniqueIDColumns) > 0 {
		parts := make([]string, 0, len(cfg.UniqueIDColumns))
		for _, c := range cfg.UniqueIDColumns {
			missing(c)
			parts = append(parts, col(c))
		}
		dto.UniqueID = strings.Join(parts, uniqueIDSeparator)
	}
	return dto, errs
}

func titleRef(title string) *entity.Ref {
	if title == "" {
		return nil
	}
	return &entity.Ref{Title: title}
}

func mappedAmount(cfg importmapping.Config, col func(string) string) (decimal.Decimal, error) {
	if cfg.AmountColumn != "" {
		raw := col(cfg.AmountColumn)
		if raw == "" {
			return decimal.Zero, fmt.Errorf("amount: column %q is empty", cfg.AmountColumn)
		}
		return parseMoney(raw)
	}
	credit, debit := col(cfg.CreditColumn), col(cfg.DebitColumn)
	if credit == "" && debit == "" {
		return decimal.Zero, fmt.Errorf("amount: columns %q and %q are both empty", cfg.CreditColumn, cfg.DebitColumn)
	}
	total := decimal.Zero
	if credit != "" {
		c, err := parseMoney(credit)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(c.Abs())
	}
	if debit != "" {
		d, err := parseMoney(debit)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Sub(d.Abs())
	}
	return total, nil
}

// parseMoney accepts thousands separators, currency symbols and accounting parentheses.
func parseMoney(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case ',', ' ', '\u00a0', '$', '€', '£', '¥':
			return -1
		}
		return r
	}, s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount: %q is not a number", raw)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

func parseMappedDate(raw, layout string) (time.Time, error) {
	if layout != "" {
		t, err := time.Parse(layout, raw)
		if err != nil {
			return time.Time{}, fmt.Errorf("date: %q does not match format %q", raw, layout)
		}
		return t, nil
	}
	for _, l := range fallbackDateLayouts {
		if t, err := time.Parse(l, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("date: cannot parse %q", raw)
}
