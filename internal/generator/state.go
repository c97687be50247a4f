package generator

// State names a stage of a generation run.
type State string

const (
	StateInit           State = "init"
	StateClearOutput    State = "clear_output"
	StateLoadMenuData   State = "load_menu_data"
	StateRenderArticles State = "render_articles"
	StateCopyAssets     State = "copy_assets"
	StateDone           State = "done"
	StateFailed         State = "failed"
)

// Terminal reports whether no stage follows s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

type stage struct {
	state State
	run   func(*run) error
}
