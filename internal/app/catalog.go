package app

import "bookcatalog/pkg/domain"

// seedBooks is the shipped catalog, keyed by digit-string ISBN.
var seedBooks = []domain.Book{
	{ISBN: "1", Author: "Chinua Achebe", Title: "Things Fall Apart"},
	{ISBN: "2", Author: "Hans Christian Andersen", Title: "Fairy tales"},
	{ISBN: "3", Author: "Dante Alighieri", Title: "The Divine Comedy"},
	{ISBN: "4", Author: "Unknown", Title: "The Epic Of Gilgamesh"},
	{ISBN: "5", Author: "Unknown", Title: "The Book Of Job"},
	{ISBN: "6", Author: "Unknown", Title: "One Thousand and One Nights"},
	{ISBN: "7", Author: "Unknown", Title: "Njál's Saga"},
	{ISBN: "8", Author: "Jane Austen", Title: "Pride and Prejudice"},
	{ISBN: "9", Author: "Honoré de Balzac", Title: "Le Père Goriot"},
	{ISBN: "10", Author: "Samuel Beckett", Title: "Molloy, Malone Dies, The Unnamable, the trilogy"},
}

// seedCatalog loads the shipped catalog into an empty store. A store that
// already has books (a persistent one) is left untouched.
func (a *App) seedCatalog() error {
	count, err := a.store.BookCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	for _, b := range seedBooks {
		if err := a.store.SaveBook(b); err != nil {
			return err
		}
	}
	return nil
}
