package programs

// Ref はコースコードから引いたプログラム参照
type Ref struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IconURL string `json:"icon_url"`
}

type Details struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Color   string `json:"color"`
	IconURL string `json:"icon_url"`
}
