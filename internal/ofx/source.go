// Package ofx turns OFX/QFX bank statements into candidate transactions
// for the ingestion pipeline.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/finch-money/finch/internal/model"
	"github.com/finch-money/finch/internal/service"
)

var _ service.CandidateSource = (*Source)(nil)

// Source parses OFX/QFX statements into candidates.
type Source struct {
	reader io.Reader
}

// NewSource creates a candidate source reading one OFX document.
func NewSource(reader io.Reader) *Source {
	return &Source{reader: reader}
}

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// preprocess fixes common formatting issues in OFX files: leading blank
// lines, mixed-case SEVERITY values, and SGML-style tags missing their
// closing bracket.
func preprocess(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	content = tagFixRegex.ReplaceAllString(content, "$1>")
	return content
}

// Candidates parses the document and returns its transactions as
// candidates. The OFX FITID travels along as the external id, so feeds
// that reuse ids dedupe exactly on re-import.
func (s *Source) Candidates(_ context.Context) ([]model.CandidateTransaction, error) {
	content, err := io.ReadAll(s.reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX document: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocess(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX document: %w", err)
	}

	var candidates []model.CandidateTransaction
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			if stmt.BankTranList == nil {
				continue
			}
			for _, ofxTx := range stmt.BankTranList.Transactions {
				candidates = append(candidates, convert(ofxTx))
			}
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			if stmt.BankTranList == nil {
				continue
			}
			for _, ofxTx := range stmt.BankTranList.Transactions {
				candidates = append(candidates, convert(ofxTx))
			}
		}
	}

	slog.Info("Parsed OFX document",
		"candidates", len(candidates),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return candidates, nil
}

// convert maps one OFX transaction to a candidate. OFX amounts are already
// signed the way the ledger expects: negative for debits.
func convert(ofxTx ofxgo.Transaction) model.CandidateTransaction {
	amount, _ := ofxTx.TrnAmt.Float64()

	description := string(ofxTx.Name)
	if ofxTx.Payee != nil && ofxTx.Payee.Name != "" {
		description = string(ofxTx.Payee.Name)
	}
	if description == "" {
		description = string(ofxTx.Memo)
	}

	return model.CandidateTransaction{
		Date:        ofxTx.DtPosted.Time,
		Description: strings.TrimSpace(description),
		Amount:      amount,
		ExternalID:  string(ofxTx.FiTID),
	}
}
