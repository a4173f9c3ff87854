package openai

import "encoding/json"

type wireModel struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
}

type wireModelList struct {
	Object string      `json:"object"`
	Data   []wireModel `json:"data"`
}

// EncodeModelList implements family.Translator.
func (t *Translator) EncodeModelList(ids []string) ([]byte, error) {
	list := wireModelList{Object: "list"}
	for _, id := range ids {
		list.Data = append(list.Data, wireModel{ID: id, Object: "model", OwnedBy: "proxy"})
	}
	return json.Marshal(list)
}
