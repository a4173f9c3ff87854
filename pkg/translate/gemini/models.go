package gemini

import "encoding/json"

type wireModel struct {
	Name string `json:"name"`
}

type wireModelList struct {
	Models []wireModel `json:"models"`
}

// EncodeModelList implements family.Translator.
func (t *Translator) EncodeModelList(ids []string) ([]byte, error) {
	list := wireModelList{}
	for _, id := range ids {
		list.Models = append(list.Models, wireModel{Name: "models/" + id})
	}
	return json.Marshal(list)
}
