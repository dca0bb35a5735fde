// ==================================
// File: internal/wallet/keystore.go
// ==================================
package wallet

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mr-tron/base58"
)

// CSV header shared by the keystore and recovery files.
var fileHeader = []string{"name", "private_key", "is_reserve", "public_key", "created_at"}

// LoadWallets reads a keystore CSV. Rows with a bad key are skipped; the
// file itself being malformed is an error.
func LoadWallets(path string) (map[string]*Wallet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open keystore: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("keystore is empty or missing data")
	}

	wallets := make(map[string]*Wallet)
	for _, record := range records[1:] {
		if len(record) < 2 {
			continue
		}
		w, err := NewWallet(record[0], record[1])
		if err != nil {
			continue
		}
		if len(record) > 2 {
			w.IsReserve, _ = strconv.ParseBool(record[2])
		}
		wallets[w.Name] = w
	}
	return wallets, nil
}

// RecoveryFile persists ephemeral keypairs before any funds move through
// them. Every write is flushed and synced immediately.
type RecoveryFile struct {
	file   *os.File
	writer *csv.Writer
}

// NewRecoveryFile creates the file and writes the header. An existing file
// at the same path is an error: recovery files are never overwritten.
func NewRecoveryFile(path string) (*RecoveryFile, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create recovery file: %w", err)
	}
	writer := csv.NewWriter(file)
	if err := writer.Write(fileHeader); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write recovery header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to flush recovery header: %w", err)
	}
	return &RecoveryFile{file: file, writer: writer}, nil
}

// Append writes one wallet and forces it to disk before returning.
func (r *RecoveryFile) Append(w *Wallet) error {
	record := []string{
		w.Name,
		base58.Encode(w.PrivateKey),
		strconv.FormatBool(w.IsReserve),
		w.PublicKey.String(),
		time.Now().UTC().Format(time.RFC3339),
	}
	if err := r.writer.Write(record); err != nil {
		return fmt.Errorf("failed to append recovery record: %w", err)
	}
	r.writer.Flush()
	if err := r.writer.Error(); err != nil {
		return fmt.Errorf("failed to flush recovery record: %w", err)
	}
	if err := r.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync recovery file: %w", err)
	}
	return nil
}

func (r *RecoveryFile) Close() error {
	r.writer.Flush()
	if err := r.writer.Error(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}

// LoadRecoveryFile reads keypairs back from a recovery file, in write order.
func LoadRecoveryFile(path string) ([]*Wallet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recovery file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read recovery CSV: %w", err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("recovery file is empty")
	}

	var wallets []*Wallet
	for _, record := range records[1:] {
		if len(record) < 3 {
			continue
		}
		w, err := NewWallet(record[0], record[1])
		if err != nil {
			return nil, fmt.Errorf("corrupt recovery record %q: %w", record[0], err)
		}
		w.IsReserve, _ = strconv.ParseBool(record[2])
		wallets = append(wallets, w)
	}
	return wallets, nil
}
