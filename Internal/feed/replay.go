package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fazecat/flowlens/Internal/types"
)

// replay column layout, one row per closed trigger bar. Price and size
// columns are parsed through decimal so exported tick-aligned values
// survive the trip into float64 unchanged.
const (
	colTimestamp = iota
	colOpen
	colHigh
	colLow
	colClose
	colVolume
	colBuyVolume
	colSellVolume
	colDelta
	colMaxDelta
	colMinDelta
	colPOC
	colBullCount
	colBearCount
	colBullVolume
	colBearVolume
	colBullAvgPos
	colBearAvgPos
	colMaxBullPrice
	colMaxBullVolume
	colMaxBearPrice
	colMaxBearVolume
	replayColumns
)

// LoadReplay reads a volumetric tape CSV and returns its trigger bars
// oldest-first. The first row may be a header.
func LoadReplay(path string) ([]types.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening replay tape: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = replayColumns

	var bars []types.Bar
	line := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading replay tape line %d: %w", line+1, err)
		}
		line++
		if line == 1 && record[colTimestamp] == "timestamp" {
			continue
		}

		bar, err := parseReplayRow(record)
		if err != nil {
			return nil, fmt.Errorf("replay tape line %d: %w", line, err)
		}
		bar.Index = len(bars)
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("replay tape %s contained no bars", path)
	}
	return bars, nil
}

func parseReplayRow(record []string) (types.Bar, error) {
	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return types.Bar{}, fmt.Errorf("bad timestamp %q: %w", record[colTimestamp], err)
	}

	fields := make([]float64, replayColumns)
	for col := colOpen; col < replayColumns; col++ {
		if col == colBullCount || col == colBearCount {
			continue
		}
		d, err := decimal.NewFromString(record[col])
		if err != nil {
			return types.Bar{}, fmt.Errorf("bad numeric field %d %q: %w", col, record[col], err)
		}
		fields[col] = d.InexactFloat64()
	}

	bullCount, err := strconv.Atoi(record[colBullCount])
	if err != nil {
		return types.Bar{}, fmt.Errorf("bad bull count %q: %w", record[colBullCount], err)
	}
	bearCount, err := strconv.Atoi(record[colBearCount])
	if err != nil {
		return types.Bar{}, fmt.Errorf("bad bear count %q: %w", record[colBearCount], err)
	}

	return types.Bar{
		Timestamp:  ts,
		Open:       fields[colOpen],
		High:       fields[colHigh],
		Low:        fields[colLow],
		Close:      fields[colClose],
		Volume:     fields[colVolume],
		BuyVolume:  fields[colBuyVolume],
		SellVolume: fields[colSellVolume],
		Delta:      fields[colDelta],
		MaxDelta:   fields[colMaxDelta],
		MinDelta:   fields[colMinDelta],
		POC:        fields[colPOC],
		Imbalances: types.ImbalanceSummary{
			BullCount:       bullCount,
			BearCount:       bearCount,
			BullVolume:      fields[colBullVolume],
			BearVolume:      fields[colBearVolume],
			BullAvgPosition: fields[colBullAvgPos],
			BearAvgPosition: fields[colBearAvgPos],
			MaxBullPrice:    fields[colMaxBullPrice],
			MaxBullVolume:   fields[colMaxBullVolume],
			MaxBearPrice:    fields[colMaxBearPrice],
			MaxBearVolume:   fields[colMaxBearVolume],
		},
	}, nil
}
