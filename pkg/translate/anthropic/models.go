package anthropic

import "encoding/json"

type wireModel struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type wireModelList struct {
	Data    []wireModel `json:"data"`
	HasMore bool        `json:"has_more"`
}

// EncodeModelList implements family.Translator.
func (t *Translator) EncodeModelList(ids []string) ([]byte, error) {
	list := wireModelList{}
	for _, id := range ids {
		list.Data = append(list.Data, wireModel{ID: id, Type: "model"})
	}
	return json.Marshal(list)
}
