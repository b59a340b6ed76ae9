package calendarview

// Element is a calendar container on a page. It owns the handle to the
// controller currently bound to it.
type Element struct {
	Index   int
	Classes string

	controller *Controller
}

// NewElement returns an unbound container with the given instance index.
func NewElement(index int) *Element {
	return &Element{Index: index}
}

// Controller returns the bound controller, or nil.
func (e *Element) Controller() *Controller {
	return e.controller
}

// Location is the page address the calendar was rendered for.
type Location struct {
	Path     string
	RawQuery string
}

// Navigator performs a full page navigation.
type Navigator interface {
	Navigate(target string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(target string)

// Navigate implements Navigator.
func (f NavigatorFunc) Navigate(target string) {
	f(target)
}
