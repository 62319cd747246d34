package products

// BOM: черновик спецификации при редактировании продукта.
// Добавление уже присутствующего сырья заменяет количество.
type BOM []BOMLine

func (b BOM) AddLine(rawMaterialID, qty int64) BOM {
	out := make(BOM, 0, len(b)+1)
	replaced := false
	for _, l := range b {
		if l.RawMaterialID == rawMaterialID {
			l.RequiredQuantity = qty
			replaced = true
		}
		out = append(out, l)
	}
	if !replaced {
		out = append(out, BOMLine{RawMaterialID: rawMaterialID, RequiredQuantity: qty})
	}
	return out
}

func (b BOM) RemoveLine(rawMaterialID int64) BOM {
	out := make(BOM, 0, len(b))
	for _, l := range b {
		if l.RawMaterialID != rawMaterialID {
			out = append(out, l)
		}
	}
	return out
}

func (b BOM) Lines() []BOMLine {
	out := make([]BOMLine, len(b))
	copy(out, b)
	return out
}
