package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/terralotes/terralotes-api/internal/models"
	"github.com/terralotes/terralotes-api/internal/repository"
	"github.com/xuri/excelize/v2"
)

// ExportService produces inventory spreadsheets and ingests bulk lot
// uploads from the same XLSX layout it exports.
type ExportService struct {
	lotRepo   repository.LotRepository
	blockRepo repository.BlockRepository
	mapRepo   repository.MapRepository
}

func NewExportService(lotRepo repository.LotRepository, blockRepo repository.BlockRepository, mapRepo repository.MapRepository) *ExportService {
	return &ExportService{lotRepo: lotRepo, blockRepo: blockRepo, mapRepo: mapRepo}
}

var lotSheetHeader = []string{"Número", "Bloque", "Estado", "Tamaño (m²)", "Precio", "Descripción"}

// ExportLotsXLSX writes the map's full lot inventory to a spreadsheet
func (s *ExportService) ExportLotsXLSX(ctx context.Context, mapID uint) ([]byte, string, error) {
	m, err := s.mapRepo.FindByID(ctx, mapID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, "", &NotFoundError{Resource: "mapa"}
		}
		return nil, "", err
	}

	lots, err := s.lotRepo.FindByMap(ctx, mapID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Lotes"
	_ = f.SetSheetName("Sheet1", sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	_ = f.SetCellValue(sheet, "A1", fmt.Sprintf("Inventario de Lotes - %s", m.Name))
	_ = f.SetCellStyle(sheet, "A1", "A1", headerStyle)

	for col, title := range lotSheetHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 3)
		_ = f.SetCellValue(sheet, cell, title)
		_ = f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for i, lot := range lots {
		row := i + 4
		blockName := ""
		if lot.Block != nil {
			blockName = lot.Block.Name
		}
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), lot.Number)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), blockName)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), lot.Status)
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), lot.SizeM2)
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), lot.Price)
		if lot.Description != nil {
			_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", row), *lot.Description)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("lotes_%s_%s.xlsx", m.GUID, time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

// ExportLotsCSV writes the map's lot inventory as CSV
func (s *ExportService) ExportLotsCSV(ctx context.Context, mapID uint) ([]byte, string, error) {
	m, err := s.mapRepo.FindByID(ctx, mapID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, "", &NotFoundError{Resource: "mapa"}
		}
		return nil, "", err
	}

	lots, err := s.lotRepo.FindByMap(ctx, mapID)
	if err != nil {
		return nil, "", err
	}

	buf := new(bytes.Buffer)
	writer := csv.NewWriter(buf)

	_ = writer.Write(lotSheetHeader)
	for _, lot := range lots {
		blockName := ""
		if lot.Block != nil {
			blockName = lot.Block.Name
		}
		description := ""
		if lot.Description != nil {
			description = *lot.Description
		}
		_ = writer.Write([]string{
			lot.Number,
			blockName,
			lot.Status,
			fmt.Sprintf("%.2f", lot.SizeM2),
			fmt.Sprintf("%.2f", lot.Price),
			description,
		})
	}
	writer.Flush()

	filename := fmt.Sprintf("lotes_%s_%s.csv", m.GUID, time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

// ImportResult summarizes a bulk lot upload
type ImportResult struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
}

// ImportLotsXLSX reads lots from a spreadsheet in the exported layout and
// creates them under the given map. Rows with a duplicate number or invalid
// values are skipped and reported, not fatal.
func (s *ExportService) ImportLotsXLSX(ctx context.Context, mapID uint, r io.Reader) (*ImportResult, error) {
	if _, err := s.mapRepo.FindByID(ctx, mapID); err != nil {
		if repository.IsNotFound(err) {
			return nil, &NotFoundError{Resource: "mapa"}
		}
		return nil, err
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, NewValidationError("file", "archivo XLSX inválido")
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}

	// Block names resolve lazily against the map's existing blocks
	blocks, err := s.blockRepo.FindByMap(ctx, mapID)
	if err != nil {
		return nil, err
	}
	blockByName := make(map[string]uint, len(blocks))
	for _, b := range blocks {
		blockByName[strings.ToLower(b.Name)] = b.ID
	}

	result := &ImportResult{}
	headerSeen := false

	for i, row := range rows {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		// Skip the title and header rows of the exported layout
		if !headerSeen {
			if strings.EqualFold(strings.TrimSpace(row[0]), lotSheetHeader[0]) {
				headerSeen = true
			}
			continue
		}

		lot, rowErr := s.parseLotRow(mapID, row, blockByName)
		if rowErr != "" {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("fila %d: %s", i+1, rowErr))
			continue
		}

		if err := s.lotRepo.Create(ctx, lot); err != nil {
			var dup *repository.DuplicateNumberError
			if errors.As(err, &dup) {
				result.Skipped++
				result.Errors = append(result.Errors, fmt.Sprintf("fila %d: número %s duplicado", i+1, lot.Number))
				continue
			}
			return nil, err
		}
		result.Created++
	}

	return result, nil
}

func (s *ExportService) parseLotRow(mapID uint, row []string, blockByName map[string]uint) (*models.Lot, string) {
	cell := func(idx int) string {
		if idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	number := cell(0)
	if number == "" {
		return nil, "número de lote vacío"
	}

	size, err := strconv.ParseFloat(strings.ReplaceAll(cell(3), ",", ""), 64)
	if err != nil || size <= 0 {
		return nil, "tamaño inválido"
	}
	price, err := strconv.ParseFloat(strings.ReplaceAll(cell(4), ",", ""), 64)
	if err != nil || price <= 0 {
		return nil, "precio inválido"
	}

	lot := &models.Lot{
		MapID:  mapID,
		Number: number,
		Status: models.LotStatusAvailable,
		SizeM2: size,
		Price:  price,
	}

	if blockName := cell(1); blockName != "" {
		blockID, ok := blockByName[strings.ToLower(blockName)]
		if !ok {
			return nil, fmt.Sprintf("bloque %s no existe", blockName)
		}
		lot.BlockID = &blockID
	}

	if description := cell(5); description != "" {
		lot.Description = &description
	}

	return lot, ""
}
