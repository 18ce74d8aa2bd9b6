package content

var titlesByCategory = map[string][]string{
	"People": {
		"Albert Einstein", "Barack Obama", "Taylor Swift", "Elon Musk", "Lionel Messi",
		"Leonardo da Vinci", "William Shakespeare", "Marilyn Monroe", "Steve Jobs", "Serena Williams",
		"Beyoncé", "Oprah Winfrey", "Cristiano Ronaldo", "Muhammad Ali", "Michael Jordan",
		"Pablo Picasso", "Vincent van Gogh", "Walt Disney", "Elvis Presley", "Madonna",
	},
	"Animals": {
		"Lion", "Elephant", "Giraffe", "Penguin", "Dolphin", "Tiger", "Panda", "Kangaroo",
		"Zebra", "Gorilla", "Polar Bear", "Koala", "Cheetah", "Wolf", "Eagle",
		"Octopus", "Shark", "Whale", "Crocodile", "Rhinoceros",
	},
	"Countries": {
		"United States", "China", "India", "Brazil", "France", "Japan", "Germany", "Italy",
		"United Kingdom", "Canada", "Australia", "Russia", "Spain", "Mexico", "Egypt",
		"South Africa", "Argentina", "Thailand", "Turkey", "South Korea",
	},
	"Places": {
		"Eiffel Tower", "Great Wall of China", "Statue of Liberty", "Taj Mahal", "Machu Picchu",
		"Colosseum", "Pyramids of Giza", "Grand Canyon", "Sydney Opera House", "Mount Everest",
		"Niagara Falls", "Petra", "Stonehenge", "Burj Khalifa", "Disneyland",
		"Louvre Museum", "Golden Gate Bridge", "Christ the Redeemer", "Acropolis of Athens", "Times Square",
	},
}

// Titles returns a copy of the predefined titles of a category.
func Titles(category string) []string {
	return append([]string(nil), titlesByCategory[category]...)
}
