package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/parkops/pricingservice/internal/pricing"
)

// Column order of the coupon CSV. The first row is a header and is skipped.
const (
	colCode = iota
	colDiscountType
	colDiscountValue
	colMaxDiscount
	colMinPurchase
	colValidFrom
	colValidTo
	colUsageLimit
	colLocations
	colFirstTimeOnly
	colWeekendsOnly
	colPeakHoursOnly
	colMultipleHours
	columnCount
)

// readCoupons parses every row it can. Rows that fail to parse or validate are reported in
// skipped rather than aborting the import.
func readCoupons(r io.Reader) (coupons []pricing.Coupon, skipped []error, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read CSV record: %w", err)
		}
		line++

		if len(record) < columnCount {
			skipped = append(skipped, fmt.Errorf("line %d: expected %d columns, got %d", line, columnCount, len(record)))
			continue
		}
		coupon, err := parseCoupon(record)
		if err == nil {
			err = coupon.Validate()
		}
		if err != nil {
			skipped = append(skipped, fmt.Errorf("line %d (%s): %w", line, strings.TrimSpace(record[colCode]), err))
			continue
		}
		coupons = append(coupons, coupon)
	}

	return coupons, skipped, nil
}

func parseCoupon(record []string) (pricing.Coupon, error) {
	field := func(i int) string { return strings.TrimSpace(record[i]) }

	coupon := pricing.Coupon{
		Code:         strings.ToUpper(field(colCode)),
		DiscountType: pricing.DiscountType(field(colDiscountType)),
	}
	if coupon.Code == "" {
		return coupon, fmt.Errorf("code is required")
	}

	var err error
	if coupon.DiscountValue, err = parseAmount(field(colDiscountValue)); err != nil {
		return coupon, fmt.Errorf("discount_value: %w", err)
	}
	if coupon.MaxDiscountAmount, err = parseAmount(field(colMaxDiscount)); err != nil {
		return coupon, fmt.Errorf("max_discount_amount: %w", err)
	}
	if coupon.MinPurchaseAmount, err = parseAmount(field(colMinPurchase)); err != nil {
		return coupon, fmt.Errorf("min_purchase_amount: %w", err)
	}

	from, to := field(colValidFrom), field(colValidTo)
	if from != "" || to != "" {
		validity := &pricing.Validity{}
		if validity.ValidFrom, err = time.Parse(time.RFC3339, from); err != nil {
			return coupon, fmt.Errorf("valid_from: %w", err)
		}
		if validity.ValidTo, err = time.Parse(time.RFC3339, to); err != nil {
			return coupon, fmt.Errorf("valid_to: %w", err)
		}
		coupon.Validity = validity
	}

	if limit := field(colUsageLimit); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			return coupon, fmt.Errorf("usage_limit: %w", err)
		}
		coupon.Usage = &pricing.Usage{Limit: n}
	}

	for _, loc := range strings.Split(field(colLocations), ";") {
		if loc = strings.TrimSpace(loc); loc != "" {
			coupon.EligibleLocations = append(coupon.EligibleLocations, loc)
		}
	}

	flags := []*bool{
		&coupon.Conditions.FirstTimeUsersOnly,
		&coupon.Conditions.WeekendsOnly,
		&coupon.Conditions.PeakHoursOnly,
		&coupon.Conditions.MultipleHoursRequired,
	}
	for i, dst := range flags {
		raw := field(colFirstTimeOnly + i)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return coupon, fmt.Errorf("column %d: %w", colFirstTimeOnly+i+1, err)
		}
		*dst = v
	}

	return coupon, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
